package transcribe

type Provider struct {
	Name          string
	Description   string
	DefaultModel  string
	CredentialEnv string
}

const (
	ProviderDeepgram = "deepgram"
	ProviderGoogle   = "google"
)

var providers = map[string]Provider{
	ProviderDeepgram: {
		Name:          "Deepgram",
		Description:   "Deepgram pre-recorded transcription via the Deepgram Go SDK.",
		DefaultModel:  "nova-2",
		CredentialEnv: "DEEPGRAM_API_KEY",
	},
	ProviderGoogle: {
		Name:          "Google Cloud Speech-to-Text",
		Description:   "Google Cloud Speech-to-Text, long-running recognition past the synchronous limit.",
		DefaultModel:  "latest_long",
		CredentialEnv: "GOOGLE_APPLICATION_CREDENTIALS",
	},
}

func GetProvider(key string) (Provider, bool) {
	provider, exists := providers[key]
	return provider, exists
}
