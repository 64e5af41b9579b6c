package main

import (
	"context"
	"fmt"

	"github.com/flaneur2020/pngchunk/pngchunk"
	"github.com/flaneur2020/pngchunk/pngchunk/editor"
	"github.com/flaneur2020/pngchunk/pngchunk/message"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func runEncode(cmd *cobra.Command, opts *options, args []string) error {
	req := editor.EncodeRequest{
		Path:      args[0],
		ChunkType: args[1],
		Message:   args[2],
		Compress:  opts.zlib,
	}
	if len(args) > 3 {
		req.OutputPath = args[3]
	}

	res, err := editor.NewEditor(opts.store).Encode(cmdContext(cmd), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.stdout, "Encoded %s chunk (%d bytes) into %s (%s)\n",
		res.Chunk.ChunkType(), res.Chunk.Length(), res.File.Name, res.File.Digest)
	return nil
}

func runDecode(cmd *cobra.Command, opts *options, args []string) error {
	text, err := editor.NewEditor(opts.store).Decode(cmdContext(cmd), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(opts.stdout, text)
	return nil
}

func runRemove(cmd *cobra.Command, opts *options, args []string) error {
	res, err := editor.NewEditor(opts.store).Remove(cmdContext(cmd), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.stdout, "Removed %s from %s (%s)\n",
		formatChunk(res.Removed, 0), res.File.Name, res.File.Digest)
	return nil
}

func runPrint(cmd *cobra.Command, opts *options, args []string) error {
	// Progress bar is shown on terminals for multi-file runs
	showProgress := opts.tty && !opts.noProgress && len(args) > 1

	var progressCallback editor.ProgressCallback
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions64(int64(len(args)),
			progressbar.OptionSetWriter(opts.stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("Loading %d files", len(args))),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		progressCallback = func(current, total int64) {
			bar.Set64(current)
		}
	}

	results, err := editor.NewEditor(opts.store).Print(cmdContext(cmd), args, opts.jobs, progressCallback)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(opts.stdout, "%s (%d bytes, %s)\n", r.Path, r.Size, r.Digest)
		for i, c := range r.Png.Chunks() {
			fmt.Fprintf(opts.stdout, "  %3d  %s\n", i, formatChunk(c, opts.width))
		}
	}
	return nil
}

// formatChunk renders a chunk's type, flags and best-effort text on one line.
func formatChunk(c *pngchunk.Chunk, width int) string {
	text, err := message.DecodeChunk(c)
	var payload string
	switch {
	case err != nil:
		payload = fmt.Sprintf("<binary %d bytes>", c.Length())
	case message.IsCompressed(c.Data()):
		payload = "(zlib) " + quote(truncate(text, width))
	default:
		payload = quote(truncate(text, width))
	}
	return fmt.Sprintf("%s [%s] %6d  %s", c.ChunkType(), flags(c.ChunkType()), c.Length(), payload)
}

// flags summarizes the property bits: critical, public, safe-to-copy.
func flags(t pngchunk.ChunkType) string {
	b := []byte("---")
	if t.IsCritical() {
		b[0] = 'C'
	}
	if t.IsPublic() {
		b[1] = 'P'
	}
	if t.IsSafeToCopy() {
		b[2] = 'S'
	}
	return string(b)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
