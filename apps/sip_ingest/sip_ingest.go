package main

import (
	"flag"
	"fmt"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/workers"
	"os"
)

// sip_ingest reads packages from the ingest topic in NSQ and runs
// each one through the ingest pipeline, from identifier assignment
// to archiving and cleanup.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context, err := context.NewContext(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer _context.Close()
	_context.MessageLog.Info("Connecting to NSQLookupd at %s", _context.Config.NsqLookupd)
	consumer, err := workers.CreateNsqConsumer(_context.Config, &_context.Config.IngestWorker)
	if err != nil {
		_context.MessageLog.Fatalf(err.Error())
	}
	_context.MessageLog.Info("sip_ingest started with config %s", _context.Config.ActiveConfig)
	_context.MessageLog.Info("CleanupOnFailure is set to %t", _context.Config.CleanupOnFailure)

	worker := workers.NewSIPIngestWorker(_context)
	consumer.AddHandler(worker)
	consumer.ConnectToNSQLookupd(_context.Config.NsqLookupd)

	// This reader blocks until we get an interrupt, so our program does not exit.
	<-consumer.StopChan
}

func parseCommandLine() (configFile string) {
	var pathToConfigFile string
	flag.StringVar(&pathToConfigFile, "config", "", "Path to ingest config file")
	flag.Parse()
	if pathToConfigFile == "" {
		printUsage()
		os.Exit(1)
	}
	return pathToConfigFile
}

// Tell the user about the program.
func printUsage() {
	message := `
sip_ingest: Ingests packages queued in NSQ into the archive.

Usage: sip_ingest -config=<absolute path to ingest config file>

Param -config is required.
`
	fmt.Println(message)
}
