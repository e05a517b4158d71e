package innertube

// PlayerResponse is the subset of the player endpoint response the pipeline
// consumes.
type PlayerResponse struct {
	PlayabilityStatus PlayabilityStatus `json:"playabilityStatus"`
	StreamingData     StreamingData     `json:"streamingData"`
	VideoDetails      VideoDetails      `json:"videoDetails"`
	Microformat       Microformat       `json:"microformat"`
}

type PlayabilityStatus struct {
	Status          string `json:"status"`
	Reason          string `json:"reason"`
	PlayableInEmbed bool   `json:"playableInEmbed"`
}

func (p *PlayabilityStatus) IsOK() bool {
	return p.Status == "OK" || p.Status == "LIVE_STREAM_OFFLINE"
}

type StreamingData struct {
	ExpiresInSeconds string   `json:"expiresInSeconds"`
	Formats          []Format `json:"formats"`
	AdaptiveFormats  []Format `json:"adaptiveFormats"`
	DashManifestURL  string   `json:"dashManifestUrl"`
	HlsManifestURL   string   `json:"hlsManifestUrl"`
}

// Format is one stream variant as reported by the API. Exactly one of URL
// and SignatureCipher is populated.
type Format struct {
	Itag             int    `json:"itag"`
	URL              string `json:"url"`
	MimeType         string `json:"mimeType"`
	Bitrate          int    `json:"bitrate"`
	AverageBitrate   int    `json:"averageBitrate"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	FPS              int    `json:"fps"`
	Quality          string `json:"quality"`
	QualityLabel     string `json:"qualityLabel"`
	AudioQuality     string `json:"audioQuality"`
	AudioSampleRate  string `json:"audioSampleRate"`
	AudioChannels    int    `json:"audioChannels"`
	ContentLength    string `json:"contentLength"`
	ApproxDurationMs string `json:"approxDurationMs"`
	SignatureCipher  string `json:"signatureCipher"`
	Cipher           string `json:"cipher"` // Legacy
}

type VideoDetails struct {
	VideoID          string           `json:"videoId"`
	Title            string           `json:"title"`
	LengthSeconds    string           `json:"lengthSeconds"`
	Keywords         []string         `json:"keywords"`
	ChannelID        string           `json:"channelId"`
	ShortDescription string           `json:"shortDescription"`
	Thumbnail        ThumbnailDetails `json:"thumbnail"`
	ViewCount        string           `json:"viewCount"`
	Author           string           `json:"author"`
	IsPrivate        bool             `json:"isPrivate"`
	IsLiveContent    bool             `json:"isLiveContent"`
}

type ThumbnailDetails struct {
	Thumbnails []Thumbnail `json:"thumbnails"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Microformat struct {
	PlayerMicroformatRenderer PlayerMicroformatRenderer `json:"playerMicroformatRenderer"`
}

type PlayerMicroformatRenderer struct {
	Title             SimpleText `json:"title"`
	Description       SimpleText `json:"description"`
	LengthSeconds     string     `json:"lengthSeconds"`
	ExternalChannelID string     `json:"externalChannelId"`
	ViewCount         string     `json:"viewCount"`
	Category          string     `json:"category"`
	PublishDate       string     `json:"publishDate"`
	UploadDate        string     `json:"uploadDate"`
	OwnerChannelName  string     `json:"ownerChannelName"`
	IsUnlisted        bool       `json:"isUnlisted"`
}

type SimpleText struct {
	SimpleText string `json:"simpleText"`
}
