package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/masomo/core"
	logsvc "github.com/trezcool/masomo/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger, zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	cli := &commandLine{conf: conf, logger: logger}
	err = newRootCmd(cli).ExecuteContext(context.Background())
	cli.close()
	_ = zl.Sync()
	if err != nil {
		os.Exit(1)
	}
}
