package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagCategory string
	flagModel    string
	flagStream   bool
	flagOut      string
)

// generateCmd submits a generation request
var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a project from a prompt",
	Long: `Generate a multi-file project from a natural-language prompt.

The prompt is taken from the argument, or from stdin with "-".

Examples:
  # Generate and print the result as JSON
  forgectl generate "a todo app with login"

  # Generate from stdin, streaming progress, and write files to a directory
  cat prompt.txt | forgectl generate - --stream --out ./generated

  # Use a different server
  forgectl generate --server http://localhost:9000 "a blog"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagCategory, "category", "webapp", "project category")
	generateCmd.Flags().StringVar(&flagModel, "model", "", "inference model override for this run")
	generateCmd.Flags().BoolVar(&flagStream, "stream", false, "stream progress events to stderr")
	generateCmd.Flags().StringVar(&flagOut, "out", "", "write generated files into this directory")
}

// GenerateRequest matches internal/generation/request.go Request
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Category string `json:"category,omitempty"`
	Model    string `json:"model,omitempty"`
}

// GeneratedFile matches internal/generation/artifact.go Artifact
type GeneratedFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

// GenerateResult matches internal/generation/verdict.go Result
type GenerateResult struct {
	RunID  string          `json:"run_id"`
	Files  []GeneratedFile `json:"files"`
	Review struct {
		Status       string   `json:"status"`
		Feedback     []string `json:"feedback,omitempty"`
		QualityScore int      `json:"quality_score"`
	} `json:"review"`
	ForcedAccept bool `json:"forced_accept"`
	Iterations   int  `json:"iterations"`
}

// ProgressEvent matches internal/generation/events.go ProgressEvent
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ErrorResponse matches internal/http/server.go ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}

	reqJSON, err := json.Marshal(GenerateRequest{Prompt: prompt, Category: flagCategory, Model: flagModel})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/generations", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if flagStream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	// Generation runs are long; the timeout covers the whole pipeline.
	client := &http.Client{Timeout: 15 * time.Minute}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if flagStream {
		return consumeStream(resp.Body)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var result GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return emitResult(&result)
}

func readPrompt(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		prompt := strings.TrimSpace(string(content))
		if prompt == "" {
			return "", fmt.Errorf("no prompt provided")
		}
		return prompt, nil
	}
	return args[0], nil
}

// consumeStream reads SSE events, echoing progress to stderr and handling the
// terminal result or error event.
func consumeStream(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch event {
			case "progress":
				var ev ProgressEvent
				if err := json.Unmarshal([]byte(data), &ev); err == nil {
					fmt.Fprintf(os.Stderr, "[%3d%%] %-12s %s\n", ev.Percent, ev.Stage, ev.Message)
				}
			case "result":
				var result GenerateResult
				if err := json.Unmarshal([]byte(data), &result); err != nil {
					return fmt.Errorf("failed to decode result event: %w", err)
				}
				return emitResult(&result)
			case "error":
				var errResp ErrorResponse
				if err := json.Unmarshal([]byte(data), &errResp); err != nil {
					return fmt.Errorf("generation failed: %s", data)
				}
				return fmt.Errorf("generation failed in stage %s: %s", errResp.Stage, errResp.Error)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	return fmt.Errorf("stream ended without a result")
}

// emitResult writes files to --out when set, otherwise prints the result as
// JSON to stdout. A summary always goes to stderr.
func emitResult(result *GenerateResult) error {
	if flagOut == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		// Validate every name before writing anything so a hostile name
		// leaves the output directory untouched.
		paths := make([]string, len(result.Files))
		for i, f := range result.Files {
			path, err := outputPath(flagOut, f.Name)
			if err != nil {
				return err
			}
			paths[i] = path
		}
		for i, f := range result.Files {
			path := paths[i]
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
			}
			if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", f.Name, err)
			}
			fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		}
	}

	fmt.Fprintf(os.Stderr, "[forgectl] run %s: %d file(s), review %s (score %d), %d iteration(s)",
		result.RunID, len(result.Files), result.Review.Status, result.Review.QualityScore, result.Iterations)
	if result.ForcedAccept {
		fmt.Fprintf(os.Stderr, ", accepted at iteration limit")
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// outputPath resolves a server-supplied artifact name under outDir. Artifact
// names come from model output and are untrusted: absolute names and names
// escaping outDir via ".." are rejected instead of written.
func outputPath(outDir, name string) (string, error) {
	local := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("refusing to write artifact with unsafe name %q", name)
	}
	return filepath.Join(outDir, local), nil
}
