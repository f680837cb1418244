package generator

// DiagramResult is one successful generation: the diagram markup and the
// model's explanation of it.
type DiagramResult struct {
	Markup      string `json:"code"`
	Explanation string `json:"explanation"`
}

// ErrorKind classifies why a generation attempt failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransient
	KindRateLimit
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimit:
		return "rate_limit"
	case KindMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}
