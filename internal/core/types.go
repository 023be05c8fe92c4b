package core

const (
	AppName       = "Parley"
	AppUserAgent  = "Parley-Relay/0.1"
	RepositoryURL = "https://github.com/sandevgo/parley"
	AppVersion    = "0.1.0"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// EndOfReply is the partial value that terminates one streamed reply.
const EndOfReply = "[__END__]"

// FallbackReply is what the user hears when the model could not be reached.
const FallbackReply = "Sorry, I ran into a problem while thinking about that. Could you say it again?"

// Turn is one role-tagged entry of a conversation. Turns are appended, never edited.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Fragment is one piece of a streamed reply. The last fragment of a stream has End set
// and carries no text.
type Fragment struct {
	Text     string
	End      bool
	Fallback bool
}

// Sentiment is the coarse emotion label of a user turn. The zero value means unknown.
type Sentiment struct {
	Label string  `json:"emotion"`
	Score float64 `json:"score"`
}

func (s Sentiment) IsEmpty() bool {
	return s.Label == ""
}

type SpeechRequest struct {
	Text     string
	Voice    string
	Language string
}
