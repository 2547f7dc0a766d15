package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/braille-tools-mcp/internal/pipeline"
)

var translateCMD = &cobra.Command{
	Use:   "translate <request.json>",
	Short: "Translate detections from a JSON file",
	Long: `Run one translate request (a JSON object with the braille_translate fields)
or a JSON array of them, and print each detection report followed by the
translated text. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, logger)
		if err != nil {
			return err
		}

		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		reqs, err := decodeRequests(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}

		results, err := p.ProcessBatch(cmd.Context(), reqs)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		return printResults(cmd.OutOrStdout(), results, asJSON)
	},
}

func init() {
	translateCMD.Flags().Bool("json", false, "Print full results as JSON")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	return data, nil
}

// decodeRequests accepts a single request object or an array of them.
func decodeRequests(data []byte) ([]pipeline.Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []pipeline.Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}
	var req pipeline.Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []pipeline.Request{req}, nil
}

func printResults(w io.Writer, results []*pipeline.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w, "---")
		}
		fmt.Fprint(w, res.DetectionText)
		fmt.Fprintln(w)
		fmt.Fprintln(w, res.TranslatedText)
	}
	return nil
}
