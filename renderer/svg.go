package renderer

import (
	"regexp"
	"strings"
)

var (
	svgOpenTag = regexp.MustCompile(`(?s)<svg\b[^>]*>`)
	sizeAttr   = regexp.MustCompile(`\s(?:width|height)\s*=\s*(?:"[^"]*"|'[^']*')`)
	styleAttr  = regexp.MustCompile(`\sstyle\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	xmlnsAttr  = regexp.MustCompile(`\sxmlns\s*=`)
)

const svgNamespace = "http://www.w3.org/2000/svg"

// StripDimensions removes the fixed width/height from the root <svg> element
// so the diagram scales with its container.
func StripDimensions(svg string) string {
	loc := svgOpenTag.FindStringIndex(svg)
	if loc == nil {
		return svg
	}
	tag := svg[loc[0]:loc[1]]
	tag = sizeAttr.ReplaceAllString(tag, "")
	tag = setStyle(tag, styleDecl{"max-width", "100%"}, styleDecl{"height", "auto"})
	return svg[:loc[0]] + tag + svg[loc[1]:]
}

// EnsureNamespace adds the SVG namespace to the root element when missing,
// which standalone .svg files need.
func EnsureNamespace(svg string) string {
	loc := svgOpenTag.FindStringIndex(svg)
	if loc == nil {
		return svg
	}
	tag := svg[loc[0]:loc[1]]
	if xmlnsAttr.MatchString(tag) {
		return svg
	}
	tag = strings.Replace(tag, "<svg", `<svg xmlns="`+svgNamespace+`"`, 1)
	return svg[:loc[0]] + tag + svg[loc[1]:]
}

type styleDecl struct {
	name, value string
}

// setStyle overrides the given declarations in the tag's style attribute,
// keeping the others in order.
func setStyle(tag string, decls ...styleDecl) string {
	var existing string
	if m := styleAttr.FindStringSubmatchIndex(tag); m != nil {
		switch {
		case m[2] >= 0:
			existing = tag[m[2]:m[3]]
		case m[4] >= 0:
			existing = tag[m[4]:m[5]]
		}
		tag = tag[:m[0]] + tag[m[1]:]
	}

	overridden := make(map[string]bool, len(decls))
	for _, d := range decls {
		overridden[d.name] = true
	}
	var parts []string
	for _, d := range strings.Split(existing, ";") {
		name, _, ok := strings.Cut(d, ":")
		if !ok || overridden[strings.ToLower(strings.TrimSpace(name))] {
			continue
		}
		parts = append(parts, strings.TrimSpace(d))
	}
	for _, d := range decls {
		parts = append(parts, d.name+": "+d.value)
	}
	style := strings.Join(parts, "; ") + ";"

	end := len(tag) - 1
	if strings.HasSuffix(tag[:end], "/") {
		end--
	}
	return tag[:end] + ` style="` + style + `"` + tag[end:]
}
