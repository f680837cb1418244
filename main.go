package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chartmaster/config"
	"chartmaster/exporter"
	"chartmaster/generator"
	"chartmaster/logging"
	"chartmaster/server"
)

var (
	configPath string
	verbose    bool

	cfg       config.Config
	log       *logrus.Logger
	logCloser io.Closer
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chartmaster",
		Short:         "Turn plain-language descriptions into Mermaid diagrams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			log, logCloser, err = logging.New(cfg.Log, verbose)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to config file (.json, .yaml or .yml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(serveCmd(), generateCmd(), renderCmd())
	return root
}

// serve: run the web UI and JSON API.
func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := buildAgent(cfg, log)
			if err != nil {
				return err
			}
			rend := buildRenderer(cfg, log)
			exp, err := exporter.New(rasterizerOf(rend), cfg.Renderer.Theme)
			if err != nil {
				return err
			}
			var r server.Renderer
			if rend != nil {
				r = rend
			}
			srv, err := server.New(agent, r, exp, server.Options{StoreSize: cfg.StoreSize, Logger: log})
			if err != nil {
				return err
			}

			listen := cfg.ServerAddr
			if addr != "" {
				listen = addr
			}
			return listenAndServe(cmd.Context(), listen, srv.Routes())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server_addr)")
	return cmd
}

func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting web server on %s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// generate [prompt]: one diagram straight to a file or stdout.
func generateCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a diagram from a description",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				if err := survey.AskOne(&survey.Input{
					Message: "Describe the chart you want:",
				}, &prompt, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			}

			agent, err := buildAgent(cfg, log)
			if err != nil {
				return err
			}
			res, err := agent.Generate(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			if res.Explanation != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), res.Explanation)
			}
			return exportMarkup(cmd, f, generator.Sanitize(res.Markup), res.Explanation, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "code", "output format: svg, png, html or code")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default chart-master.<ext>; code goes to stdout)")
	return cmd
}

// render <file>: render existing Mermaid markup; "-" reads stdin.
func renderCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a Mermaid file to svg, png or html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			markup := generator.Sanitize(string(data))
			if markup == "" {
				return fmt.Errorf("%s contains no diagram markup", args[0])
			}
			return exportMarkup(cmd, f, markup, "", out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: svg, png, html or code")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default chart-master.<ext>)")
	return cmd
}
