package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/beevik/etree"
)

// getetagBody is a minimal depth-0 PROPFIND asking only for the etag.
const getetagBody = `<?xml version="1.0" encoding="UTF-8"?>
<D:propfind xmlns:D="DAV:"><D:prop><D:getetag/></D:prop></D:propfind>`

// DoGetEtag fetches the current etag of a calendar object via PROPFIND.
// Used to recover the etag when a PUT response omits one, or to re-arm
// optimistic locking after local state was lost.
func (c *httpClientWrapper) DoGetEtag(ctx context.Context, urlStr string) (string, error) {
	c.logger.Debug("starting PROPFIND request", "url", urlStr)

	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "PROPFIND", resolvedURL.String(), strings.NewReader(getetagBody))
	if err != nil {
		return "", fmt.Errorf("failed to create PROPFIND request: %w", err)
	}
	req.Header.Set("Depth", "0")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return "", fmt.Errorf("failed to send PROPFIND request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read PROPFIND response: %w", err)
	}

	etag, err := parseEtagResponse(body)
	if err != nil {
		return "", err
	}

	c.logger.Debug("PROPFIND request complete", "etag", etag)
	return etag, nil
}

// parseEtagResponse pulls the first getetag value out of a multistatus
// document. Servers disagree on namespace prefixes, so matching is done on
// local element names only.
func parseEtagResponse(body []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return "", fmt.Errorf("failed to parse multistatus response: %w", err)
	}

	var etag string
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if etag != "" {
			return
		}
		if el.Tag == "getetag" {
			etag = strings.TrimSpace(el.Text())
			return
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}

	if etag == "" {
		return "", fmt.Errorf("no etag found in multistatus response")
	}
	return etag, nil
}
