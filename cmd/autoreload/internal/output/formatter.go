package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Formatter handles output formatting for CLI
type Formatter struct {
	format string // json, yaml, text
	quiet  bool
	out    io.Writer
	err    io.Writer
	now    func() time.Time
	mu     sync.Mutex
}

// NewFormatter creates a new output formatter
func NewFormatter() *Formatter {
	return &Formatter{
		format: "text",
		out:    os.Stdout,
		err:    os.Stderr,
		now:    time.Now,
	}
}

// SetFormat sets the output format
func (f *Formatter) SetFormat(format string) {
	f.format = format
}

// SetQuiet sets quiet mode
func (f *Formatter) SetQuiet(quiet bool) {
	f.quiet = quiet
}

// SetWriters sets the output and error writers.
func (f *Formatter) SetWriters(out, err io.Writer) {
	if out != nil {
		f.out = out
	}
	if err != nil {
		f.err = err
	}
}

// Format returns the current output format.
func (f *Formatter) Format() string {
	return f.format
}

// Err returns the diagnostics writer.
func (f *Formatter) Err() io.Writer {
	return f.err
}

// Print outputs data in the configured format
func (f *Formatter) Print(data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.format {
	case "yaml":
		return f.printYAML(data)
	case "text":
		return f.printText(data)
	default:
		return f.printJSON(data)
	}
}

// Success outputs a success message
func (f *Formatter) Success(message string, data any) error {
	if f.quiet {
		return nil
	}

	result := map[string]any{
		"status":  "success",
		"message": message,
	}
	if data != nil {
		result["data"] = data
	}

	return f.Print(result)
}

// Error outputs an error message and returns the matching ExitError.
func (f *Formatter) Error(message string, code int) error {
	result := map[string]any{
		"status":    "error",
		"message":   message,
		"exit_code": code,
	}

	if err := f.Print(result); err != nil {
		return err
	}

	return &ExitError{Code: code, Message: message}
}

// Event outputs one streamed event, e.g. "restart.detected".
func (f *Formatter) Event(name string, data map[string]any) error {
	if f.quiet {
		return nil
	}

	entry := map[string]any{
		"event": name,
		"time":  f.now().UTC().Format(time.RFC3339),
	}
	if len(data) > 0 {
		entry["data"] = data
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.format {
	case "yaml":
		fmt.Fprintln(f.out, "---")
		return f.printYAML(entry)
	case "text":
		return f.printText(entry)
	default:
		// one object per line so the stream stays line-delimited JSON
		b, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(f.out, string(b))
		return err
	}
}

func (f *Formatter) printJSON(data any) error {
	if str, ok := data.(string); ok {
		_, err := fmt.Fprintln(f.out, str)
		return err
	}

	encoder := json.NewEncoder(f.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) printYAML(data any) error {
	if str, ok := data.(string); ok {
		_, err := fmt.Fprintln(f.out, str)
		return err
	}

	encoder := yaml.NewEncoder(f.out)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

func (f *Formatter) printText(data any) error {
	m, ok := data.(map[string]any)
	if !ok {
		_, err := fmt.Fprintln(f.out, data)
		return err
	}
	_, err := fmt.Fprintln(f.out, flatten("", m))
	return err
}

// flatten renders a map as sorted "k=v" pairs, nesting with dots.
func flatten(prefix string, m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := m[k].(map[string]any); ok {
			parts = append(parts, flatten(name, nested))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", name, m[k]))
	}
	return strings.Join(parts, " ")
}
