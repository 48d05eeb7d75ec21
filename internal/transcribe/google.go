/**
* Name: 			google.go
* Description: 		Google Cloud Speech-to-Text backend
* Workflow: 		read staged audio, Recognize (LongRunningRecognize past the sync limit), map to channel/alternative shape
 */

package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// syncAudioLimit is roughly one minute of 16 kHz LINEAR16, the ceiling
// of synchronous Recognize. Larger uploads go straight to
// LongRunningRecognize.
const syncAudioLimit = 2 << 20

// speechAPI is the subset of the Speech-to-Text client the backend calls.
type speechAPI interface {
	recognize(ctx context.Context, req *speechpb.RecognizeRequest) ([]*speechpb.SpeechRecognitionResult, error)
	recognizeLong(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) ([]*speechpb.SpeechRecognitionResult, error)
	Close() error
}

type cloudSpeech struct {
	client *speech.Client
}

func (c cloudSpeech) recognize(ctx context.Context, req *speechpb.RecognizeRequest) ([]*speechpb.SpeechRecognitionResult, error) {
	resp, err := c.client.Recognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.GetResults(), nil
}

func (c cloudSpeech) recognizeLong(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) ([]*speechpb.SpeechRecognitionResult, error) {
	op, err := c.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return resp.GetResults(), nil
}

func (c cloudSpeech) Close() error {
	return c.client.Close()
}

type GoogleClient struct {
	api    speechAPI
	logger *zap.Logger
}

// NewGoogleClient uses application default credentials when
// credentialsFile is empty.
func NewGoogleClient(ctx context.Context, credentialsFile string, logger *zap.Logger) (*GoogleClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGoogleClient(): failed to create speech client: %w", err)
	}
	return newGoogleClient(cloudSpeech{client: client}, logger), nil
}

func newGoogleClient(api speechAPI, logger *zap.Logger) *GoogleClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleClient{api: api, logger: logger}
}

func (g *GoogleClient) Transcribe(ctx context.Context, audio Audio, opts Options) (*Result, error) {
	data, err := os.ReadFile(audio.Path)
	if err != nil {
		return nil, fmt.Errorf("GoogleClient.Transcribe(): read staged audio: %w", err)
	}

	config := recognitionConfig(audio.MimeType, opts)
	content := &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
	}

	if len(data) <= syncAudioLimit {
		results, err := g.api.recognize(ctx, &speechpb.RecognizeRequest{Config: config, Audio: content})
		if err == nil {
			return resultFromRecognize(results), nil
		}
		if !isSyncTooLong(err) {
			return nil, fromGRPCError(err)
		}
		g.logger.Info("GoogleClient.Transcribe(): audio exceeds the synchronous limit, retrying as long-running",
			zap.Int("bytes", len(data)),
			zap.Error(err))
	}

	results, err := g.api.recognizeLong(ctx, &speechpb.LongRunningRecognizeRequest{Config: config, Audio: content})
	if err != nil {
		g.logger.Warn("GoogleClient.Transcribe(): long-running recognition failed",
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return nil, fromGRPCError(err)
	}
	return resultFromRecognize(results), nil
}

func (g *GoogleClient) Close() error {
	if g.api != nil {
		return g.api.Close()
	}
	return nil
}

// isSyncTooLong matches the InvalidArgument Recognize returns for audio
// longer than about a minute.
func isSyncTooLong(err error) bool {
	s, ok := status.FromError(err)
	if !ok || s.Code() != codes.InvalidArgument {
		return false
	}
	msg := strings.ToLower(s.Message())
	return strings.Contains(msg, "too long") || strings.Contains(msg, "longrunningrecognize")
}

// recognitionConfig leaves the encoding unspecified for WAV and FLAC,
// whose headers carry it.
func recognitionConfig(mimeType string, opts Options) *speechpb.RecognitionConfig {
	config := &speechpb.RecognitionConfig{
		LanguageCode:               opts.Language,
		Model:                      opts.Model,
		EnableAutomaticPunctuation: opts.SmartFormat,
	}
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "audio/webm":
		config.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		config.SampleRateHertz = 48000
	case "audio/ogg":
		config.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		config.SampleRateHertz = 48000
	}
	return config
}

// resultFromRecognize joins the sequential segments Google returns into
// a single channel with one alternative.
func resultFromRecognize(results []*speechpb.SpeechRecognitionResult) *Result {
	var (
		parts      []string
		confidence float32
	)
	for _, r := range results {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		best := r.GetAlternatives()[0]
		parts = append(parts, strings.TrimSpace(best.GetTranscript()))
		confidence += best.GetConfidence()
	}
	alt := Alternative{Transcript: strings.Join(parts, " ")}
	if len(parts) > 0 {
		alt.Confidence = float64(confidence) / float64(len(parts))
	}
	return &Result{
		Results: &Results{
			Channels: []Channel{{Alternatives: []Alternative{alt}}},
		},
	}
}

func fromGRPCError(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	code := http.StatusInternalServerError
	switch s.Code() {
	case codes.InvalidArgument, codes.OutOfRange:
		code = http.StatusBadRequest
	case codes.Unauthenticated:
		code = http.StatusUnauthorized
	case codes.PermissionDenied:
		code = http.StatusForbidden
	case codes.NotFound:
		code = http.StatusNotFound
	case codes.ResourceExhausted:
		code = http.StatusTooManyRequests
	case codes.Unavailable:
		code = http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		code = http.StatusGatewayTimeout
	case codes.Canceled:
		return context.Canceled
	}
	return &APIError{Provider: ProviderGoogle, StatusCode: code, Body: s.Message()}
}
