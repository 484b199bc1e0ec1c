// Package main writes the development CA and the stub server certificate
// into a directory, for serving the stub API over HTTPS.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeepedia/jeepedia/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "directory to write certificates into")
	hosts := fs.String("hosts", "localhost,127.0.0.1,::1", "comma separated server names and addresses")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	p, err := certgen.Ensure(*dir, names...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "CA:     %s\nServer: %s\n", p.CACert, p.ServerCert)
	fmt.Fprintf(out, "Start the server with -tls-dir %s and the client with -ca %s\n", *dir, p.CACert)
	return nil
}
