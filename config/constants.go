package config

import "time"

// Clustering constants
const (
	// DefaultFuzzyThreshold is the token-set ratio (0-100) at which two
	// titles are considered the same story.
	DefaultFuzzyThreshold = 90

	// DefaultEmbeddingThreshold is the cosine similarity at which an item
	// joins an existing cluster semantically.
	DefaultEmbeddingThreshold = 0.82

	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "embed-english-v3.0"
)

// Narration constants
const (
	// DefaultChatModel drives both scoring and summary generation.
	DefaultChatModel = "command-r-08-2024"

	// DefaultMaxSnippets caps how many member snippets go into one
	// narration request.
	DefaultMaxSnippets = 6

	// DefaultSnippetChars caps each snippet sent to the model.
	DefaultSnippetChars = 300
)

// Scoring constants
const (
	// DefaultLongShare marks the top portion of scored clusters as "long"
	// narration when no explicit cutoff is configured.
	DefaultLongShare = 0.3
)

// Synthesis constants
const (
	// DefaultTTSWorkers bounds concurrent segment synthesis.
	DefaultTTSWorkers = 2

	// DefaultTTSFormat is the synthesized segment container.
	DefaultTTSFormat = "mp3"

	// DefaultTTSTimeout bounds one synthesis request.
	DefaultTTSTimeout = 60 * time.Second
)

// Scheduling constants
const (
	// DefaultIntervalHours is the minimum spacing between digest runs.
	DefaultIntervalHours = 12

	// DefaultHeartbeatSeconds is the longest a stage may stay silent.
	DefaultHeartbeatSeconds = 60

	// DefaultHeartbeatEvery forces a heartbeat after this many items.
	DefaultHeartbeatEvery = 25
)

// Fetch constants
const (
	// DefaultFetchTimeout bounds one article fetch.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultFetchMaxBytes caps how much of an article body is read.
	DefaultFetchMaxBytes = 262144

	// DefaultFetchCacheTTL is how long fetched article text stays cached.
	DefaultFetchCacheTTL = 24 * time.Hour
)

// Output constants
const (
	DefaultOutputDir          = "output/audio"
	DefaultPublicDir          = "audio"
	DefaultAudioFilename      = "latest.mp3"
	DefaultChaptersFilename   = "chapters.json"
	DefaultTranscriptFilename = "transcript.txt"
)
