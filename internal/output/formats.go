package output

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sevengram/drover/internal/httpx"
)

// OutputFormat represents the available probe output formats.
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, FormatJSON, FormatYAML:
		return OutputFormat(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// FormatProvider renders probe traffic in one output format.
type FormatProvider interface {
	FormatRequest(method, rawURL string, headers map[string]string) string
	FormatResponse(resp *httpx.Response) string
}

// RequestData is the structured form of a probe request.
type RequestData struct {
	Method    string            `json:"method" yaml:"method"`
	URL       string            `json:"url" yaml:"url"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
}

// TimingData is the structured form of the per-phase timing breakdown,
// in milliseconds.
type TimingData struct {
	DNSLookup       int64 `json:"dnsLookupMs" yaml:"dnsLookupMs"`
	TCPConnect      int64 `json:"tcpConnectMs" yaml:"tcpConnectMs"`
	TLSHandshake    int64 `json:"tlsHandshakeMs" yaml:"tlsHandshakeMs"`
	TimeToFirstByte int64 `json:"timeToFirstByteMs" yaml:"timeToFirstByteMs"`
	ContentTransfer int64 `json:"contentTransferMs" yaml:"contentTransferMs"`
	Total           int64 `json:"totalMs" yaml:"totalMs"`
}

// ResponseData is the structured form of a probe response.
type ResponseData struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Status     string            `json:"status" yaml:"status"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       interface{}       `json:"body,omitempty" yaml:"body,omitempty"`
	Timing     TimingData        `json:"timing" yaml:"timing"`
	Timestamp  string            `json:"timestamp" yaml:"timestamp"`
}

func requestData(method, rawURL string, headers map[string]string) RequestData {
	return RequestData{
		Method:    method,
		URL:       rawURL,
		Headers:   headers,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func responseData(resp *httpx.Response) ResponseData {
	headers := make(map[string]string)
	for key, values := range resp.Headers {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	// Bodies are usually JSON; keep them structured when they parse.
	var body interface{}
	if bodyStr := resp.BodyString(); bodyStr != "" {
		if err := json.Unmarshal([]byte(bodyStr), &body); err != nil {
			body = bodyStr
		}
	}

	return ResponseData{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    headers,
		Body:       body,
		Timing: TimingData{
			DNSLookup:       resp.Timing.DNSLookup.Milliseconds(),
			TCPConnect:      resp.Timing.Connect.Milliseconds(),
			TLSHandshake:    resp.Timing.TLSHandshake.Milliseconds(),
			TimeToFirstByte: resp.Timing.FirstByte.Milliseconds(),
			ContentTransfer: resp.Timing.Transfer.Milliseconds(),
			Total:           resp.Timing.Total.Milliseconds(),
		},
		Timestamp: resp.Timing.Start.Format(time.RFC3339),
	}
}

// JSONFormatter formats probe traffic as JSON.
type JSONFormatter struct {
	Pretty bool
}

// FormatRequest formats a request as JSON.
func (f *JSONFormatter) FormatRequest(method, rawURL string, headers map[string]string) string {
	return f.marshal(requestData(method, rawURL, headers))
}

// FormatResponse formats a response as JSON.
func (f *JSONFormatter) FormatResponse(resp *httpx.Response) string {
	return f.marshal(responseData(resp))
}

func (f *JSONFormatter) marshal(data interface{}) string {
	var output []byte
	var err error
	if f.Pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(output)
}

// YAMLFormatter formats probe traffic as YAML.
type YAMLFormatter struct{}

// FormatRequest formats a request as YAML.
func (f *YAMLFormatter) FormatRequest(method, rawURL string, headers map[string]string) string {
	return yamlMarshal(requestData(method, rawURL, headers))
}

// FormatResponse formats a response as YAML.
func (f *YAMLFormatter) FormatResponse(resp *httpx.Response) string {
	return yamlMarshal(responseData(resp))
}

func yamlMarshal(data interface{}) string {
	output, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error: %s\n", err)
	}
	return string(output)
}

// GetFormatter returns the formatter for the given format.
func GetFormatter(format OutputFormat, verbose, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &Formatter{Verbose: verbose, NoColor: noColor}
	}
}
