package main

import (
	"flag"
	"fmt"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/network"
	"github.com/dustin/go-humanize"
	"io/ioutil"
	"os"
)

// sip_submit checks that each package file on the command line
// parses, then queues it for sip_ingest. The package goes into the
// queue whole, because the package store belongs to the ingest
// workers.
func main() {
	pathToConfigFile, files := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	client := network.NewNSQClient(config.NsqdHttpAddress)
	jsonCodec := codec.NewJSONCodec()
	failed := 0
	for _, file := range files {
		if err := submit(client, jsonCodec, config.IngestWorker.NsqTopic, file); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed++
		}
	}
	reportDepth(client, config.IngestWorker.NsqTopic)
	if failed > 0 {
		os.Exit(2)
	}
}

// reportDepth prints how many packages are waiting in topic. A stats
// failure doesn't affect what was queued.
func reportDepth(client *network.NSQClient, topic string) {
	depth, err := client.QueueDepth(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot get stats for %s: %v\n", topic, err)
		return
	}
	fmt.Printf("%s now has %s packages waiting\n", topic, humanize.Comma(depth))
}

func submit(client *network.NSQClient, jsonCodec codec.Codec, topic, file string) error {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return err
	}
	pkg, err := jsonCodec.Deserialize(data)
	if err != nil {
		return err
	}
	if duplicates := pkg.DuplicateIds(); len(duplicates) > 0 {
		return fmt.Errorf("package has duplicate ids %v", duplicates)
	}
	if err = client.Enqueue(topic, data); err != nil {
		return err
	}
	fmt.Printf("Queued %s: %d entities, %s\n", file, pkg.Len(),
		humanize.Bytes(uint64(len(data))))
	return nil
}

func parseCommandLine() (configFile string, files []string) {
	var pathToConfigFile string
	flag.StringVar(&pathToConfigFile, "config", "", "Path to ingest config file")
	flag.Parse()
	if pathToConfigFile == "" || flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}
	return pathToConfigFile, flag.Args()
}

// Tell the user about the program.
func printUsage() {
	message := `
sip_submit: Queues serialized packages for ingest.

Usage: sip_submit -config=<path to ingest config file> <package.json> ...

Param -config is required, along with at least one package file.
Packages go to the topic in the IngestWorker section of the config.
`
	fmt.Println(message)
}
