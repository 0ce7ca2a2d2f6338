package main

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/urfave/cli"
)

var logger = log.New("oxy-hybrid")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
