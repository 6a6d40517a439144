package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// stateCmd and snapshotCmd talk to the loopback-only admin endpoints of a
// running server.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	os.Exit(adminRequest(http.MethodGet, *baseURL, "/admin/v1/state", 5*time.Second, os.Stdout))
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	os.Exit(adminRequest(http.MethodPost, *baseURL, "/admin/v1/snapshot", 10*time.Second, os.Stdout))
}

// adminRequest prints the response body and returns the process exit code.
func adminRequest(method, baseURL, path string, timeout time.Duration, out io.Writer) int {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 2
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return 1
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Fprintln(out, strings.TrimRight(string(b), "\n"))
	if resp.StatusCode/100 != 2 {
		return 1
	}
	return 0
}
