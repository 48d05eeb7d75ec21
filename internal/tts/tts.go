/**
* Name: 			tts.go
* Description: 		Google Text-to-Speech client for task read-back
* Workflow: 		task text -> SynthesizeSpeech -> LINEAR16 WAV bytes
 */

package tts

import (
	"context"
	"errors"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const sampleRateHertz = 16000

var ErrEmptyText = errors.New("nothing to synthesize")

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Voice struct {
	LanguageCode string
	Name         string
}

type GoogleSynthesizer struct {
	client *texttospeech.Client
	voice  Voice
	logger *zap.Logger
}

func NewGoogleSynthesizer(ctx context.Context, credentialsFile string, voice Voice, logger *zap.Logger) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGoogleSynthesizer(): failed to create TTS client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleSynthesizer{client: client, voice: voice, logger: logger}, nil
}

// Synthesize returns a WAV file; LINEAR16 output from Google carries a
// RIFF header.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := g.client.SynthesizeSpeech(ctx, synthesizeRequest(text, g.voice))
	if err != nil {
		g.logger.Error("GoogleSynthesizer.Synthesize(): SynthesizeSpeech failed", zap.Error(err))
		return nil, err
	}

	g.logger.Debug("GoogleSynthesizer.Synthesize(): SynthesizeSpeech succeeded",
		zap.Int("audio_bytes", len(resp.AudioContent)))
	return resp.AudioContent, nil
}

func (g *GoogleSynthesizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func synthesizeRequest(text string, voice Voice) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: sampleRateHertz,
		},
	}
}
