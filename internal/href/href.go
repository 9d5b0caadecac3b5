// Package href classifies URL-like strings that may reference Azure Blob
// Storage, extracting the storage account, container and blob path needed
// to request a SAS token.
package href

import (
	"net/url"
	"strings"
)

// BlobStorageDomain is the hostname suffix shared by all Azure Blob Storage
// public endpoints.
const BlobStorageDomain = ".blob.core.windows.net"

// Components is the parsed view of a blob storage href. Account is empty for
// filesystem-style (abfs/az) hrefs that carry no account in the URL itself.
type Components struct {
	Account   string
	Container string
	Path      string
	RawQuery  string
}

// Parse classifies an href string. It recognizes two forms:
//
//   - https://<account>.blob.core.windows.net/<container>/<path>
//   - abfs://<container>/<path> (also az://), the filesystem-style form used
//     by fsspec-compatible tooling; the container may carry an account suffix
//     as <container>@<account>.dfs.core.windows.net
//
// Anything else, including malformed strings, returns ok=false: such hrefs
// are outside the signable domain and are passed through by callers.
func Parse(raw string) (Components, bool) {
	u, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return Components{}, false
	}

	switch u.Scheme {
	case "http", "https":
		return parseBlobURL(u)
	case "abfs", "az":
		return parseFilesystemURL(u)
	}

	return Components{}, false
}

// IsSigned reports whether an href's query string already carries a SAS
// signature. The "sig" parameter holds the signature itself and is present in
// every SAS token, so its presence marks the href as already signed.
func IsSigned(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return u.Query().Has("sig")
}

func parseBlobURL(u *url.URL) (Components, bool) {
	host := u.Host
	if !strings.HasSuffix(host, BlobStorageDomain) {
		return Components{}, false
	}

	account := strings.TrimSuffix(host, BlobStorageDomain)
	container, path, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !ok || account == "" || container == "" {
		// a blob-domain URL without a container and blob path can't be
		// scoped to a signing request
		return Components{}, false
	}

	return Components{
		Account:   account,
		Container: container,
		Path:      path,
		RawQuery:  u.RawQuery,
	}, true
}

func parseFilesystemURL(u *url.URL) (Components, bool) {
	container := u.Host
	account := ""

	// adlfs also accepts abfs://<container>@<account>.dfs.core.windows.net/<path>
	if c, rest, ok := strings.Cut(container, "@"); ok {
		container = c
		account, _, _ = strings.Cut(rest, ".")
	}

	if container == "" {
		return Components{}, false
	}

	return Components{
		Account:   account,
		Container: container,
		Path:      strings.TrimPrefix(u.Path, "/"),
		RawQuery:  u.RawQuery,
	}, true
}
