package sqlscribectl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

type usageError struct {
	err error
}

func (e usageError) Error() string {
	return e.err.Error()
}

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// Run executes one command and returns the process exit code: 0 on success,
// 1 when the request or server fails, 2 on bad usage.
func Run(ctx context.Context, args []string, defaults Options) int {
	r := &runner{
		stdin:  defaults.Stdin,
		stdout: defaults.Stdout,
		stderr: defaults.Stderr,
		client: defaults.HTTPClient,
	}
	if r.stdin == nil {
		r.stdin = strings.NewReader("")
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = io.Discard
	}

	// cobra reads os.Args when handed a nil slice.
	if args == nil {
		args = []string{}
	}
	root := r.rootCommand(defaults)
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var usage usageError
	if errors.As(err, &usage) {
		_, _ = fmt.Fprintf(r.stderr, "error: %v\n\n", usage.err)
		_, _ = fmt.Fprint(r.stderr, root.UsageString())
		return exitUsage
	}
	_, _ = fmt.Fprintf(r.stderr, "error: %v\n", err)
	return exitFailure
}

type runner struct {
	baseURL string
	apiKey  string
	timeout time.Duration

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	client *http.Client
}

func (r *runner) rootCommand(defaults Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "sqlscribectl",
		Short:         "Command-line client for the sqlscribe API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usagef("a command is required")
			}
			return usagef("unknown command %q", args[0])
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&r.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "sqlscribe API base URL")
	flags.StringVar(&r.apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	flags.DurationVar(&r.timeout, "timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 90s)")

	root.AddCommand(
		r.simpleCommand("health", "Check that the API is running", "/v1/health"),
		r.simpleCommand("ready", "Check that the API can reach its dependencies", "/v1/ready"),
		r.schemaCommand(),
		r.compileCommand(),
	)
	return root
}

func (r *runner) simpleCommand(name, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := r.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return r.printJSON(body)
		},
	}
}

func (r *runner) schemaCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema offered by the server's schema source",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := r.do(cmd.Context(), http.MethodGet, "/v1/schema", nil)
			if err != nil {
				return err
			}
			if !raw {
				return r.printJSON(body)
			}
			var payload struct {
				Schema string `json:"schema"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return fmt.Errorf("decode schema response: %w", err)
			}
			_, err = fmt.Fprintln(r.stdout, strings.TrimRight(payload.Schema, "\n"))
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print only the schema text")
	return cmd
}

func (r *runner) compileCommand() *cobra.Command {
	var (
		query      string
		schemaFile string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Translate a natural-language query into SQL",
		Long: `compile sends one query and schema to the API and prints the six
compilation stages. Without --schema-file the server's configured schema is
used; --schema-file - reads the schema from stdin.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(query) == "" {
				return usagef("--query is required")
			}
			if output != "text" && output != "json" {
				return usagef("--output must be text or json, got %q", output)
			}

			schema, err := r.loadSchema(cmd.Context(), schemaFile)
			if err != nil {
				return err
			}
			if strings.TrimSpace(schema) == "" {
				return usagef("schema is empty")
			}

			body, err := r.do(cmd.Context(), http.MethodPost, "/v1/compile", map[string]string{
				"query":  query,
				"schema": schema,
			})
			if err != nil {
				return err
			}
			if output == "json" {
				return r.printJSON(body)
			}
			var response compileResponse
			if err := json.Unmarshal(body, &response); err != nil {
				return fmt.Errorf("decode compile response: %w", err)
			}
			return writeCompileText(r.stdout, response)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "natural-language query")
	cmd.Flags().StringVarP(&schemaFile, "schema-file", "s", "", "file with the database schema, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func (r *runner) loadSchema(ctx context.Context, path string) (string, error) {
	switch strings.TrimSpace(path) {
	case "":
		body, err := r.do(ctx, http.MethodGet, "/v1/schema", nil)
		if err != nil {
			return "", fmt.Errorf("fetch server schema: %w", err)
		}
		var payload struct {
			Schema string `json:"schema"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("decode schema response: %w", err)
		}
		return payload.Schema, nil
	case "-":
		data, err := io.ReadAll(r.stdin)
		if err != nil {
			return "", fmt.Errorf("read schema from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read schema file: %w", err)
		}
		return string(data), nil
	}
}

type apiError struct {
	Status    int
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e *apiError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.ErrorCode, e.Message)
}

func (r *runner) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	endpoint := strings.TrimRight(r.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := strings.TrimSpace(r.apiKey); key != "" {
		req.Header.Set("X-API-Key", key)
	}

	client := r.client
	if client == nil {
		client = &http.Client{Timeout: r.timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.Unmarshal(responseBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(responseBody))
		}
		return nil, apiErr
	}
	return responseBody, nil
}

func (r *runner) printJSON(raw []byte) error {
	if pretty, ok := prettyJSON(raw); ok {
		_, err := fmt.Fprintln(r.stdout, pretty)
		return err
	}
	if len(raw) > 0 {
		_, err := fmt.Fprintln(r.stdout, string(raw))
		return err
	}
	return nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err: err}
	}
	return nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
