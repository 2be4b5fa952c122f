package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/multierr"

	"github.com/tangzhangming/pyra/internal/config"
	"github.com/tangzhangming/pyra/internal/logging"
	"github.com/tangzhangming/pyra/internal/lsp"
)

// Version 语言服务器版本
const Version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "print version information")
	logFile := flag.String("log", "", "log file path (default: stderr)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", lsp.ServerName, Version)
		return
	}

	cfg, err := config.Discover(".")
	if err != nil {
		cfg = config.Default()
	}
	lc := cfg.Log
	if *logFile != "" {
		lc.File = *logFile
	}
	if *verbose {
		lc.Level = "debug"
	}
	log, err := logging.New(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := lsp.NewServer(Version, log)
	if err := server.Serve(ctx, stdio{os.Stdin, os.Stdout}); err != nil && ctx.Err() == nil {
		log.Sugar().Error("server error: ", err)
		os.Exit(1)
	}
}

// stdio 标准输入输出组合成一个连接
type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdio) Close() error {
	return multierr.Append(s.ReadCloser.Close(), s.WriteCloser.Close())
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Pyra language server")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pyrals [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "The server talks JSON-RPC over stdin/stdout and publishes")
	fmt.Fprintln(os.Stderr, "parse and compile diagnostics for open documents.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Options:")
	flag.PrintDefaults()
}
