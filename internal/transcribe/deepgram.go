package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	listenmsg "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	dginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenrest "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen/v1/rest"
)

const DefaultDeepgramBaseURL = "https://api.deepgram.com"

// DeepgramClient transcribes staged files through the pre-recorded
// listen API of the Deepgram SDK.
type DeepgramClient struct {
	listen *listenapi.Client
}

func NewDeepgramClient(apiKey, baseURL string) (*DeepgramClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("NewDeepgramClient(): api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultDeepgramBaseURL
	}

	rest := listenrest.New(apiKey, &dginterfaces.ClientOptions{Host: strings.TrimRight(baseURL, "/")})
	if rest == nil {
		return nil, errors.New("NewDeepgramClient(): invalid client options")
	}
	return &DeepgramClient{listen: listenapi.New(rest)}, nil
}

func (d *DeepgramClient) Transcribe(ctx context.Context, audio Audio, opts Options) (*Result, error) {
	contentType := audio.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx = dginterfaces.WithCustomHeaders(ctx, http.Header{"Content-Type": []string{contentType}})

	resp, err := d.listen.FromFile(ctx, audio.Path, &dginterfaces.PreRecordedTranscriptionOptions{
		Model:       opts.Model,
		Language:    opts.Language,
		SmartFormat: opts.SmartFormat,
	})
	if err != nil {
		return nil, fromDeepgramError(err)
	}
	return resultFromDeepgram(resp), nil
}

func resultFromDeepgram(resp *listenmsg.PreRecordedResponse) *Result {
	out := &Result{RequestID: resp.RequestID}
	if resp.Metadata != nil && resp.Metadata.RequestID != "" {
		out.RequestID = resp.Metadata.RequestID
	}
	if resp.Results == nil {
		return out
	}

	out.Results = &Results{Channels: make([]Channel, 0, len(resp.Results.Channels))}
	for _, ch := range resp.Results.Channels {
		c := Channel{Alternatives: make([]Alternative, 0, len(ch.Alternatives))}
		for _, alt := range ch.Alternatives {
			c.Alternatives = append(c.Alternatives, Alternative{Transcript: alt.Transcript, Confidence: alt.Confidence})
		}
		out.Results.Channels = append(out.Results.Channels, c)
	}
	return out
}

// fromDeepgramError maps SDK failures onto APIError so the retry and
// breaker policy can classify them.
func fromDeepgramError(err error) error {
	var statusErr *dginterfaces.StatusError
	if errors.As(err, &statusErr) && statusErr.Resp != nil {
		apiErr := &APIError{
			Provider:   ProviderDeepgram,
			StatusCode: statusErr.Resp.StatusCode,
			Body:       statusErr.Resp.Status,
		}
		if de := statusErr.DeepgramError; de != nil {
			apiErr.Body = strings.TrimSpace(de.ErrCode + " " + de.ErrMsg)
		}
		return apiErr
	}
	if errors.Is(err, listenrest.ErrInvalidInput) {
		return &APIError{Provider: ProviderDeepgram, StatusCode: http.StatusBadRequest, Body: "empty audio file"}
	}
	return fmt.Errorf("DeepgramClient.Transcribe(): %w", err)
}
