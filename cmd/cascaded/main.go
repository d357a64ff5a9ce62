/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nlnetlabs/cascade"
)

var appVersion string

func main() {
	cascade.Globals.App.Name = "cascaded"
	cascade.Globals.App.Version = appVersion

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgfile := cascade.DefaultServerCfgFile
	if len(os.Args) > 1 {
		cfgfile = os.Args[1]
	}

	conf, err := cascade.ParseConfig(cfgfile)
	if err != nil {
		log.Fatalf("cascaded: %v", err)
	}
	if err := cascade.SetupLogging(conf.Log.File); err != nil {
		log.Fatalf("cascaded: %v", err)
	}

	store, err := cascade.OpenStore(conf.Db.File)
	if err != nil {
		log.Fatalf("cascaded: %v", err)
	}
	defer store.Close()

	engine := cascade.NewEngine(store, cascade.PassThroughSigner{})
	conf.Internal.Engine = engine

	for apex, zc := range conf.ZoneConfigs() {
		if _, err := engine.AddZone(zc); err != nil {
			log.Printf("cascaded: adding zone %s: %v", apex, err)
		}
	}

	router, err := cascade.SetupAPIRouter(conf)
	if err != nil {
		log.Fatalf("cascaded: setting up API router: %v", err)
	}

	// SIGHUP triggers a config reparse, following the teacher's SIGHUP
	// reload pattern (auth/main.go). The reparsed config is only checked
	// and logged: nothing from it is applied to the running daemon, so
	// every config change, including the zone set, takes effect on the
	// next restart.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if newConf, err := cascade.ParseConfig(cfgfile); err != nil {
					log.Printf("cascaded: SIGHUP reload failed: %v", err)
				} else {
					log.Printf("cascaded: SIGHUP: reloaded %s", newConf.Internal.CfgFile)
				}
			}
		}
	}()

	go engine.Run(ctx)

	for _, addr := range conf.Apiserver.Addresses {
		addr := addr
		go func() {
			log.Printf("cascaded: apiserver listening on %s", addr)
			if err := http.ListenAndServe(addr, router); err != nil {
				log.Printf("cascaded: apiserver on %s: %v", addr, err)
			}
		}()
	}

	<-ctx.Done()
	log.Printf("cascaded: shutting down")
}
