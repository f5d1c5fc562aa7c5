// File: cmd/client.go
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkaelum/harrier/internal/observability"
	"github.com/xkaelum/harrier/internal/supervisor"
)

// callEngine performs one supervised RPC against the engine, spawning it
// first if nothing is listening. The engine is left running afterwards so
// subsequent commands reuse its warm browser profiles. Declared as a
// variable so command tests can intercept the dispatch.
var callEngine = func(method string, params any, out any) error {
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(cfg.Supervisor, cfg.Engine.Port, logger)
	return sup.Call(ctx, method, params, out)
}

// printJSON renders a result to stdout for piping into other tools.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readJSONFile loads and unmarshals a parameter file, "-" meaning stdin.
func readJSONFile(path string, out any) error {
	data, err := readFileOrStdin(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

// readRawFile loads a file verbatim into a string, "-" meaning stdin.
func readRawFile(path string, out *string) error {
	data, err := readFileOrStdin(path)
	if err != nil {
		return err
	}
	*out = string(data)
	return nil
}

func readFileOrStdin(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}
