package transcribe

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResultFromRecognize(t *testing.T) {
	result := resultFromRecognize([]*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "testing one", Confidence: 0.5}}},
		{Alternatives: nil},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " two three ", Confidence: 1}}},
	})

	transcript, err := result.Transcript()
	require.NoError(t, err)
	assert.Equal(t, "testing one two three", transcript)
	assert.InDelta(t, 0.75, result.Results.Channels[0].Alternatives[0].Confidence, 0.0001)
}

func TestResultFromRecognize_Silence(t *testing.T) {
	transcript, err := resultFromRecognize(nil).Transcript()
	require.NoError(t, err)
	assert.Empty(t, transcript)
}

func TestRecognitionConfig(t *testing.T) {
	opts := Options{Model: "latest_long", Language: "en-US", SmartFormat: true}

	wav := recognitionConfig("audio/wav", opts)
	assert.Equal(t, speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, wav.Encoding)
	assert.Equal(t, "en-US", wav.LanguageCode)
	assert.Equal(t, "latest_long", wav.Model)
	assert.True(t, wav.EnableAutomaticPunctuation)

	webm := recognitionConfig("audio/webm;codecs=opus", opts)
	assert.Equal(t, speechpb.RecognitionConfig_WEBM_OPUS, webm.Encoding)
	assert.Equal(t, int32(48000), webm.SampleRateHertz)
}

func TestFromGRPCError(t *testing.T) {
	var apiErr *APIError

	err := fromGRPCError(status.Error(codes.Unavailable, "try later"))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "try later", apiErr.Body)
	assert.True(t, apiErr.Temporary())

	err = fromGRPCError(status.Error(codes.InvalidArgument, "bad audio"))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, apiErr.Temporary())

	assert.ErrorIs(t, fromGRPCError(status.Error(codes.Canceled, "")), context.Canceled)
}

// fakeSpeech records which recognition path was taken.
type fakeSpeech struct {
	syncErr  error
	longErr  error
	syncHits int
	longHits int
	longReq  *speechpb.LongRunningRecognizeRequest
}

func (f *fakeSpeech) recognize(_ context.Context, _ *speechpb.RecognizeRequest) ([]*speechpb.SpeechRecognitionResult, error) {
	f.syncHits++
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return transcriptResults("short clip"), nil
}

func (f *fakeSpeech) recognizeLong(_ context.Context, req *speechpb.LongRunningRecognizeRequest) ([]*speechpb.SpeechRecognitionResult, error) {
	f.longHits++
	f.longReq = req
	if f.longErr != nil {
		return nil, f.longErr
	}
	return transcriptResults("long recording"), nil
}

func (f *fakeSpeech) Close() error { return nil }

func transcriptResults(text string) []*speechpb.SpeechRecognitionResult {
	return []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text, Confidence: 0.9}}},
	}
}

func stagedAudio(t *testing.T, size int) Audio {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return Audio{Path: path, MimeType: "audio/wav"}
}

func TestGoogleClient_ShortAudioIsSynchronous(t *testing.T) {
	api := &fakeSpeech{}
	result, err := newGoogleClient(api, nil).Transcribe(context.Background(), stagedAudio(t, 1024), Options{Language: "en-US"})
	require.NoError(t, err)

	transcript, err := result.Transcript()
	require.NoError(t, err)
	assert.Equal(t, "short clip", transcript)
	assert.Equal(t, 1, api.syncHits)
	assert.Zero(t, api.longHits)
}

func TestGoogleClient_LargeAudioIsLongRunning(t *testing.T) {
	api := &fakeSpeech{}
	result, err := newGoogleClient(api, nil).Transcribe(context.Background(), stagedAudio(t, syncAudioLimit+1), Options{Language: "en-US"})
	require.NoError(t, err)

	transcript, err := result.Transcript()
	require.NoError(t, err)
	assert.Equal(t, "long recording", transcript)
	assert.Zero(t, api.syncHits)
	assert.Equal(t, 1, api.longHits)
	assert.Equal(t, "en-US", api.longReq.GetConfig().GetLanguageCode())
	assert.Len(t, api.longReq.GetAudio().GetContent(), syncAudioLimit+1)
}

func TestGoogleClient_SyncTooLongFallsBack(t *testing.T) {
	api := &fakeSpeech{syncErr: status.Error(codes.InvalidArgument,
		"Sync input too long. For audio longer than 1 min use LongRunningRecognize with a 'uri' parameter.")}

	result, err := newGoogleClient(api, nil).Transcribe(context.Background(), stagedAudio(t, 1024), Options{})
	require.NoError(t, err)

	transcript, err := result.Transcript()
	require.NoError(t, err)
	assert.Equal(t, "long recording", transcript)
	assert.Equal(t, 1, api.syncHits)
	assert.Equal(t, 1, api.longHits)
}

func TestGoogleClient_OtherInvalidArgumentIsBadInput(t *testing.T) {
	api := &fakeSpeech{syncErr: status.Error(codes.InvalidArgument, "bad encoding")}

	_, err := newGoogleClient(api, nil).Transcribe(context.Background(), stagedAudio(t, 1024), Options{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad encoding", apiErr.Body)
	assert.Zero(t, api.longHits)
}

func TestGoogleClient_LongRunningFailure(t *testing.T) {
	api := &fakeSpeech{longErr: status.Error(codes.Unavailable, "backend busy")}

	_, err := newGoogleClient(api, nil).Transcribe(context.Background(), stagedAudio(t, syncAudioLimit+1), Options{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Temporary())
}

func TestIsSyncTooLong(t *testing.T) {
	assert.True(t, isSyncTooLong(status.Error(codes.InvalidArgument, "Sync input too long.")))
	assert.False(t, isSyncTooLong(status.Error(codes.InvalidArgument, "bad encoding")))
	assert.False(t, isSyncTooLong(status.Error(codes.Unavailable, "too long")))
	assert.False(t, isSyncTooLong(context.DeadlineExceeded))
}
