package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/postqueue/pkg/utils"
)

const facebookTimeout = 15 * time.Second

type Facebook struct {
	graphURL string
	client   *http.Client
}

func NewFacebook(graphURL string) *Facebook {
	return &Facebook{
		graphURL: strings.TrimRight(graphURL, "/"),
		client:   &http.Client{Timeout: facebookTimeout},
	}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Publish posts to the page feed. Exactly one request is made; nothing is retried.
func (fb *Facebook) Publish(ctx context.Context, req Request) Result {
	form := url.Values{}
	form.Set("message", req.Message)
	form.Set("access_token", req.AccessToken)
	if req.MediaURL != "" {
		form.Set("source", req.MediaURL)
	}

	endpoint := fmt.Sprintf("%s/%s/feed", fb.graphURL, url.PathEscape(req.AccountExternalID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{ErrorCode: CodeRequestError, ErrorMessage: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := fb.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return Result{ErrorCode: CodeTimeout, ErrorMessage: "request timed out"}
		}
		return Result{ErrorCode: CodeRequestError, ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{ErrorCode: CodeUnknownError, ErrorMessage: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		res := Result{
			ErrorCode:    strconv.Itoa(resp.StatusCode),
			StatusCode:   resp.StatusCode,
			ErrorMessage: utils.Truncate(string(body), MaxErrorMessageLen),
		}
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			res.ErrorMessage = utils.Truncate(ge.Error.Message, MaxErrorMessageLen)
			res.ErrorType = ge.Error.Type
		}
		if res.ErrorMessage == "" {
			res.ErrorMessage = http.StatusText(resp.StatusCode)
		}
		return res
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
		return Result{ErrorCode: CodeUnknownError, ErrorMessage: utils.Truncate("unexpected response: "+string(body), MaxErrorMessageLen)}
	}

	return Result{
		Success:        true,
		ExternalPostID: created.ID,
		StatusCode:     resp.StatusCode,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
