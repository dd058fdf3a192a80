package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/alecthomas/kingpin.v2"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/driver"
	"MiniCatalog/pkg/kit"
)

var (
	app   = kingpin.New("catalogctl", "Tools for the multi-index product catalog.")
	debug = app.Flag("debug", "Log catalog mutations at debug level.").Bool()

	runCmd    = app.Command("run", "Replay a command script against an empty catalog.")
	runScript = runCmd.Arg("script", "Script file, stdin when omitted.").File()
	runQuiet  = runCmd.Flag("quiet", "Print only the summary.").Short('q').Bool()
	runLP3    = runCmd.Flag("lp3", "Tag lists end at the first 0.").Bool()

	tokenCmd     = app.Command("token", "Mint an operator token for the catalog service.")
	tokenSecret  = tokenCmd.Flag("secret", "HS256 secret shared with the service.").Envar("JWT_SECRET").Required().String()
	tokenSubject = tokenCmd.Flag("subject", "Token subject.").Default("operator").String()
	tokenTTL     = tokenCmd.Flag("ttl", "Token lifetime.").Default("24h").Duration()
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	level := zapcore.InfoLevel
	if *debug {
		level = zapcore.DebugLevel
	}
	log := kit.NewLoggerAt("catalogctl", level)
	defer func() { _ = log.Sync() }()

	switch cmd {
	case runCmd.FullCommand():
		if err := runScriptFile(log); err != nil {
			log.Fatal("script failed", zap.Error(err))
		}
	case tokenCmd.FullCommand():
		if err := mintToken(*tokenSecret, *tokenSubject, *tokenTTL); err != nil {
			log.Fatal("token failed", zap.Error(err))
		}
	}
}

func runScriptFile(log *zap.Logger) error {
	in := os.Stdin
	if *runScript != nil {
		in = *runScript
		defer in.Close()
	}

	var results io.Writer = os.Stdout
	if *runQuiet {
		results = nil
	}
	var opts []driver.Option
	if *runLP3 {
		opts = append(opts, driver.WithZeroTerminatedLists())
	}
	d := driver.New(catalog.New(log.Named("index")), results, log, opts...)

	start := time.Now()
	sum, err := d.Run(in)
	if err != nil {
		return err
	}
	fmt.Printf("%d %d\n", sum.Checksum, time.Since(start).Milliseconds())
	return nil
}

func mintToken(secret, subject string, ttl time.Duration) error {
	if len(secret) < 32 {
		return errors.New("secret must be at least 32 chars")
	}
	tok, err := auth.NewTokenMaker(secret).New(subject, auth.RoleOperator, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
