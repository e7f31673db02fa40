package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"streamplays.tv/internal/protocol"
)

type httpFlags struct {
	url   *string
	token *string
}

func addHTTPFlags(fs *flag.FlagSet) httpFlags {
	return httpFlags{
		url:   fs.String("url", "http://127.0.0.1:9002", "admin base url"),
		token: fs.String("token", "", "admin bearer token (or set SP_ADMIN_TOKEN)"),
	}
}

func (f httpFlags) do(method, path string, body []byte) {
	tok := strings.TrimSpace(*f.token)
	if tok == "" {
		tok = strings.TrimSpace(os.Getenv("SP_ADMIN_TOKEN"))
	}
	u := strings.TrimRight(strings.TrimSpace(*f.url), "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func statusCmd(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	hf := addHTTPFlags(fs)
	_ = fs.Parse(args)
	hf.do(http.MethodGet, "/admin/status", nil)
}

func modeCmd(args []string) {
	fs := flag.NewFlagSet("mode", flag.ExitOnError)
	hf := addHTTPFlags(fs)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin mode [-url U] [-token T] anarchy|democracy")
		os.Exit(2)
	}
	m, err := protocol.ParseMode(strings.ToLower(strings.TrimSpace(fs.Arg(0))))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	body, _ := json.Marshal(protocol.ModeRequest{Mode: string(m)})
	hf.do(http.MethodPost, "/admin/mode", body)
}

func commandCmd(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	hf := addHTTPFlags(fs)
	_ = fs.Parse(args)
	hf.do(http.MethodPost, "/admin/"+name, nil)
}
