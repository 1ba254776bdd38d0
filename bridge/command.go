package bridge

// CommandType tags a command crossing the application-to-native channel.
type CommandType string

const (
	CommandLoad                  CommandType = "load"
	CommandPlay                  CommandType = "play"
	CommandPause                 CommandType = "pause"
	CommandSeekTo                CommandType = "seekTo"
	CommandSetVolume             CommandType = "setVolume"
	CommandSetSpeed              CommandType = "setSpeed"
	CommandSetQuality            CommandType = "setQuality"
	CommandSetAudioTrack         CommandType = "setAudioTrack"
	CommandSetSubtitleTrack      CommandType = "setSubtitleTrack"
	CommandIsPiPAvailable        CommandType = "isPictureInPictureAvailable"
	CommandEnterPiP              CommandType = "enterPictureInPicture"
	CommandEnterFullscreen       CommandType = "enterFullScreen"
	CommandExitFullscreen        CommandType = "exitFullScreen"
	CommandSetShowNativeControls CommandType = "setShowNativeControls"
	CommandDispose               CommandType = "dispose"
)

// Result codes reported by the native layer for failed commands.
const (
	CodeInvalidURL         = "INVALID_URL"
	CodeLoadError          = "LOAD_ERROR"
	CodePiPFailed          = "PIP_FAILED"
	CodeNoActivity         = "NO_ACTIVITY"
	CodeNotSupported       = "NOT_SUPPORTED"
	CodeChannelUnavailable = "CHANNEL_UNAVAILABLE"
	CodeDisposed           = "DISPOSED"
)

// Command is the tagged union of all operations the application layer
// issues against a surface. The Command field selects which payload
// fields apply.
type Command struct {
	Command CommandType `json:"command"`

	URL      string            `json:"url,omitempty"`
	AutoPlay bool              `json:"autoPlay,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`

	Milliseconds int64   `json:"milliseconds,omitempty"`
	Volume       float64 `json:"volume,omitempty"`
	Speed        float64 `json:"speed,omitempty"`

	Quality  *Quality `json:"quality,omitempty"`
	Language string   `json:"language,omitempty"`
	Show     bool     `json:"show,omitempty"`

	// UserInitiated marks fullscreen requests that originate from an
	// on-screen affordance rather than the application API.
	UserInitiated bool `json:"userInitiated,omitempty"`
}

// Result is the reply to a command. A zero Code with OK set means the
// command was accepted; failed commands carry one of the Code constants.
type Result struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Value   bool   `json:"value,omitempty"`
}

// Success is the zero-payload successful result.
func Success() Result {
	return Result{OK: true}
}

// Failure builds a failed result with the given code and message.
func Failure(code, message string) Result {
	return Result{Code: code, Message: message}
}

// CreationParams is the opaque parameter bag supplied when a surface
// is created.
type CreationParams struct {
	ControllerID string `json:"controllerId,omitempty"`

	AutoPlay                               bool `json:"autoPlay"`
	ShowNativeControls                     bool `json:"showNativeControls"`
	AllowsPictureInPicture                 bool `json:"allowsPictureInPicture"`
	CanStartPictureInPictureAutomatically  bool `json:"canStartPictureInPictureAutomatically"`
	IsFullScreen                           bool `json:"isFullScreen"`

	MediaInfo *MediaInfo `json:"mediaInfo,omitempty"`
}

// MediaInfo carries "Now Playing" metadata for the media session.
type MediaInfo struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// DecodeCreationParams decodes a serialized parameter bag, applying
// defaults for absent fields.
func DecodeCreationParams(data []byte) (CreationParams, error) {
	params := CreationParams{ShowNativeControls: true}

	if len(data) == 0 {
		return params, nil
	}

	if err := decode(data, &params); err != nil {
		return CreationParams{ShowNativeControls: true}, err
	}

	return params, nil
}
