package cmd

import (
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/reqflow/request"
	"github.com/adamwoolhether/reqflow/response"
)

type fetchFlags struct {
	sha256       string
	progress     bool
	skipExisting bool
	rangeHeader  string
}

func newFetchCmd(gf *globalFlags) *cobra.Command {
	var ff fetchFlags

	fetchCmd := &cobra.Command{
		Use:   "fetch <url> <dest>",
		Short: "Download a response body to a file",
		Long: `Download a response body to dest. If dest is a directory the file name
from Content-Disposition is used. The file is written to a temp file first
and only renamed into place once it is complete.

Examples:
  reqflow fetch https://example.com/file.tar.gz ./file.tar.gz --sha256 <hex>
  reqflow fetch /exports/latest ./downloads/ --progress`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, gf, &ff, args[0], args[1])
		},
	}

	f := fetchCmd.Flags()
	f.StringVar(&ff.sha256, "sha256", "", "expected hex SHA-256 of the body")
	f.BoolVar(&ff.progress, "progress", false, "log download progress")
	f.BoolVar(&ff.skipExisting, "skip-existing", false, "do nothing if dest already exists")
	f.StringVar(&ff.rangeHeader, "range", "", `Range header, e.g. "bytes=0-1023"`)

	return fetchCmd
}

func runFetch(cmd *cobra.Command, gf *globalFlags, ff *fetchFlags, target, dest string) error {
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

	b := request.FromURL(cmd.Context(), ub).WithAcceptOctetStream()
	if ff.rangeHeader != "" {
		b.WithHeader("Range", ff.rangeHeader)
	}

	req, err := b.Request()
	if err != nil {
		return err
	}

	fr, err := c.File(req)
	if err != nil {
		return err
	}
	defer fr.Close()

	paint := statusColor(fr.StatusCode)
	fmt.Fprintln(cmd.ErrOrStderr(), paint(fmt.Sprintf("%d %s", fr.StatusCode, http.StatusText(fr.StatusCode))))

	if fr.StatusCode != http.StatusOK && !fr.IsPartial() {
		return fmt.Errorf("unexpected status %d", fr.StatusCode)
	}

	saveOpts := []response.SaveOption{response.WithLogger(gf.logger(cmd))}
	if ff.sha256 != "" {
		saveOpts = append(saveOpts, response.WithChecksum(sha256.New(), ff.sha256))
	}
	if ff.progress {
		saveOpts = append(saveOpts, response.WithProgress())
	}
	if ff.skipExisting {
		saveOpts = append(saveOpts, response.WithSkipExisting())
	}

	if err := fr.SaveTo(cmd.Context(), dest, saveOpts...); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), dest)

	return nil
}
