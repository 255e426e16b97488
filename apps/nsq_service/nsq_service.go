package main

import (
	"bufio"
	"flag"
	"fmt"
	"github.com/dataconservancy/ingest/util"
	"github.com/dataconservancy/ingest/util/fileutil"
	"io"
	"os"
	"os/exec"
	"strings"
)

// nsq_service starts nsqlookupd, nsqd and nsqadmin for running
// sip_ingest and sip_submit on a dev machine. Control-C stops them all.
func main() {
	configFile := flag.String("config", "", "Path to nsqd config file")
	flag.Parse()
	if *configFile == "" {
		printUsage()
		os.Exit(1)
	}
	dataDir, err := dataPath(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	run(*configFile, dataDir)
}

func run(configFile, dataDir string) {
	fmt.Println("Starting NSQ processes. Use Control-C to quit all")
	nsqdArgs := []string{fmt.Sprintf("--config=%s", configFile)}
	if dataDir != "" {
		nsqdArgs = append(nsqdArgs, fmt.Sprintf("--data-path=%s", dataDir))
	}
	processes := []*exec.Cmd{
		startProcess("nsqlookupd"),
		startProcess("nsqd", nsqdArgs...),
		startProcess("nsqadmin", "--lookupd-http-address=127.0.0.1:4161"),
	}
	for _, cmd := range processes {
		if cmd != nil {
			cmd.Wait()
		}
	}
}

// startProcess starts command with its stdout and stderr going to
// ours. Returns nil if the command would not start.
func startProcess(command string, arg ...string) *exec.Cmd {
	fmt.Println("Starting", command, arg)
	cmd := exec.Command(command, arg...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		fmt.Println("Error starting", command, err)
		return nil
	}
	return cmd
}

// dataPath returns the data_path setting from the nsqd config file,
// with ~ expanded, and creates the directory if it isn't there.
// Returns an empty string if the file has no data_path.
func dataPath(configFile string) (string, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return "", fmt.Errorf("Cannot open config file: %v", err)
	}
	defer file.Close()
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		cleanLine := strings.TrimSpace(line)
		if strings.HasPrefix(cleanLine, "data_path") {
			parts := strings.SplitN(cleanLine, "=", 2)
			if len(parts) < 2 {
				return "", fmt.Errorf("Config file setting for data_path is malformed.")
			}
			expanded, err := fileutil.ExpandTilde(util.CleanString(parts[1]))
			if err != nil {
				return "", fmt.Errorf("Cannot expand data_path setting '%s': %v", parts[1], err)
			}
			if !fileutil.FileExists(expanded) {
				fmt.Printf("Creating NSQ data directory %s\n", expanded)
				if err = os.MkdirAll(expanded, 0755); err != nil {
					return "", err
				}
			}
			return expanded, nil
		}
		if err == io.EOF {
			return "", nil
		}
	}
}

func printUsage() {
	message := `
nsq_service: Starts nsqlookupd, nsqd and nsqadmin for local testing.

Usage: nsq_service -config=<path to nsqd config file>

Param -config is required. See config/nsq/nsqd.dev.config.
Control-C stops all three processes.
`
	fmt.Println(message)
}
