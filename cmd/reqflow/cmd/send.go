package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/adamwoolhether/reqflow/request"
)

type sendFlags struct {
	method      string
	data        string
	contentType string
	jsonBody    string
	form        []string
	files       []string
	query       []string
	accept      []string
	extract     string
	expect      int
	include     bool
}

func newSendCmd(gf *globalFlags) *cobra.Command {
	var sf sendFlags

	sendCmd := &cobra.Command{
		Use:   "send <url>",
		Short: "Send a request and print the response",
		Long: `Send a single request through the configured handler chain and print
the response body. The status line is written to stderr.

Examples:
  reqflow send https://api.example.com/items -q page=2
  reqflow send /items -X POST --json '{"name":"widget"}' --extract id
  reqflow send /upload -X POST --form note=hi --file doc=./report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, gf, &sf, args[0])
		},
	}

	f := sendCmd.Flags()
	f.StringVarP(&sf.method, "method", "X", http.MethodGet, "request method")
	f.StringVarP(&sf.data, "data", "d", "", "request body sent as text")
	f.StringVar(&sf.contentType, "content-type", "", "media type of --data")
	f.StringVar(&sf.jsonBody, "json", "", "JSON request body")
	f.StringArrayVar(&sf.form, "form", nil, "multipart field name=value (repeatable)")
	f.StringArrayVar(&sf.files, "file", nil, "multipart file name=path (repeatable)")
	f.StringArrayVarP(&sf.query, "query", "q", nil, "query parameter key=value (repeatable)")
	f.StringArrayVar(&sf.accept, "accept", nil, "Accept media type (repeatable)")
	f.StringVar(&sf.extract, "extract", "", "print only the value at this gjson path of a JSON response")
	f.IntVar(&sf.expect, "expect", 0, "fail unless the response has this status")
	f.BoolVarP(&sf.include, "include", "i", false, "print response headers")

	sendCmd.MarkFlagsMutuallyExclusive("data", "json", "form")
	sendCmd.MarkFlagsMutuallyExclusive("data", "json", "file")

	return sendCmd
}

func runSend(cmd *cobra.Command, gf *globalFlags, sf *sendFlags, target string) error {
	s, err := gf.settings(cmd)
	if err != nil {
		return err
	}

	c, err := gf.client(cmd, s)
	if err != nil {
		return err
	}

	ub, err := resolveURL(s.BaseURL, target)
	if err != nil {
		return err
	}
	for _, q := range sf.query {
		key, value, _ := strings.Cut(q, "=")
		ub.SetQueryParam(key, value)
	}

	b := request.FromURL(cmd.Context(), ub).WithMethod(strings.ToUpper(sf.method))
	for _, a := range sf.accept {
		b.WithAccept(a)
	}

	switch {
	case sf.jsonBody != "":
		if !json.Valid([]byte(sf.jsonBody)) {
			return errors.New("--json is not valid JSON")
		}
		b.WithJSON(json.RawMessage(sf.jsonBody))
	case cmd.Flags().Changed("data") && sf.contentType != "":
		b.WithStream(strings.NewReader(sf.data), sf.contentType)
	case cmd.Flags().Changed("data"):
		b.WithText(sf.data)
	case len(sf.form) > 0 || len(sf.files) > 0:
		closers, err := addMultipart(b, sf)
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()
		if err != nil {
			return err
		}
	}

	resp, err := c.Send(b)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	paint := statusColor(resp.StatusCode)
	fmt.Fprintln(cmd.ErrOrStderr(), paint(fmt.Sprintf("%s %s", resp.Proto, resp.Status)))

	out := cmd.OutOrStdout()
	if sf.include {
		for _, name := range slices.Sorted(maps.Keys(resp.Header)) {
			for _, v := range resp.Header[name] {
				fmt.Fprintf(out, "%s: %s\n", name, v)
			}
		}
		fmt.Fprintln(out)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if sf.extract != "" {
		res := gjson.GetBytes(body, sf.extract)
		if !res.Exists() {
			return fmt.Errorf("path %q not found in response", sf.extract)
		}
		fmt.Fprintln(out, res.String())
	} else {
		out.Write(body)
		if len(body) > 0 && body[len(body)-1] != '\n' {
			fmt.Fprintln(out)
		}
	}

	if sf.expect != 0 && resp.StatusCode != sf.expect {
		return fmt.Errorf("expected status %d, got %d", sf.expect, resp.StatusCode)
	}

	return nil
}

// addMultipart attaches form fields and files. The returned files must
// be closed once the request has been sent.
func addMultipart(b *request.Builder, sf *sendFlags) ([]io.Closer, error) {
	mb := b.Multipart()

	for _, field := range sf.form {
		name, value, _ := strings.Cut(field, "=")
		mb.WithString(name, value)
	}

	var closers []io.Closer
	for _, arg := range sf.files {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			return closers, fmt.Errorf("invalid --file %q, want name=path", arg)
		}

		f, err := os.Open(path)
		if err != nil {
			return closers, fmt.Errorf("opening %s: %w", path, err)
		}
		closers = append(closers, f)

		ct := mime.TypeByExtension(filepath.Ext(path))
		if ct == "" {
			ct = request.MediaTypeOctetStream
		}
		mb.WithFile(name, f, filepath.Base(path), ct)
	}

	return closers, nil
}
