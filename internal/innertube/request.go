package innertube

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestContext carries the per-call values shared by every persona request.
// It is built once per acquisition and not mutated afterwards.
type RequestContext struct {
	VideoID            string
	SignatureTimestamp int
	Locale             string
	PoToken            string
	VisitorData        string
	// Authorization is the ready-to-send bearer header value, or empty.
	Authorization string
}

// Normalize fills absent optional fields with defaults.
func (rc *RequestContext) Normalize() {
	if rc.Locale == "" {
		rc.Locale = "en"
	}
}

// PlayerCall is one prepared player API request.
type PlayerCall struct {
	URL     string
	Payload []byte
	Headers http.Header
}

type playerRequest struct {
	Context                    requestContextBlock         `json:"context"`
	VideoID                    string                      `json:"videoId"`
	ContentCheckOk             bool                        `json:"contentCheckOk"`
	RacyCheckOk                bool                        `json:"racyCheckOk"`
	PlaybackContext            *playbackContext            `json:"playbackContext,omitempty"`
	ServiceIntegrityDimensions *serviceIntegrityDimensions `json:"serviceIntegrityDimensions,omitempty"`
}

type requestContextBlock struct {
	Client     clientInfo      `json:"client"`
	ThirdParty *thirdParty     `json:"thirdParty,omitempty"`
	Request    requestFeatures `json:"request"`
}

type clientInfo struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	UserAgent         string `json:"userAgent,omitempty"`
	AcceptLanguage    string `json:"hl"`
	TimeZone          string `json:"timeZone"`
	UtcOffsetMinutes  int    `json:"utcOffsetMinutes"`
	VisitorData       string `json:"visitorData,omitempty"`
	OsName            string `json:"osName,omitempty"`
	OsVersion         string `json:"osVersion,omitempty"`
	DeviceMake        string `json:"deviceMake,omitempty"`
	DeviceModel       string `json:"deviceModel,omitempty"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
}

type thirdParty struct {
	EmbedURL string `json:"embedUrl"`
}

type requestFeatures struct {
	UseSsl bool `json:"useSsl"`
}

type playbackContext struct {
	ContentPlaybackContext contentPlaybackContext `json:"contentPlaybackContext"`
}

type contentPlaybackContext struct {
	Vis                int    `json:"vis"`
	Splay              bool   `json:"splay"`
	HTML5Preference    string `json:"html5Preference"`
	SignatureTimestamp int    `json:"signatureTimestamp,omitempty"`
}

type serviceIntegrityDimensions struct {
	PoToken string `json:"poToken,omitempty"`
}

// BuildPlayerRequest prepares the player API call for one persona. It is a
// pure function of the profile and request context.
func BuildPlayerRequest(profile Profile, rc RequestContext) (*PlayerCall, error) {
	client := clientInfo{
		ClientName:       profile.Name,
		ClientVersion:    profile.Version,
		UserAgent:        profile.UserAgent,
		AcceptLanguage:   rc.Locale,
		TimeZone:         "UTC",
		UtcOffsetMinutes: 0,
		VisitorData:      rc.VisitorData,
	}
	applyDeviceDefaults(&client, profile)

	req := playerRequest{
		VideoID:        rc.VideoID,
		ContentCheckOk: true,
		RacyCheckOk:    true,
		Context: requestContextBlock{
			Client:  client,
			Request: requestFeatures{UseSsl: true},
		},
		PlaybackContext: &playbackContext{
			ContentPlaybackContext: contentPlaybackContext{
				HTML5Preference:    "HTML5_PREF_WANTS",
				SignatureTimestamp: rc.SignatureTimestamp,
			},
		},
	}
	if profile.EmbedHost {
		req.Context.ThirdParty = &thirdParty{
			EmbedURL: "https://" + profile.Host + "/watch?v=" + rc.VideoID,
		}
	}
	if rc.PoToken != "" {
		req.ServiceIntegrityDimensions = &serviceIntegrityDimensions{PoToken: rc.PoToken}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal player request: %w", err)
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("User-Agent", profile.UserAgent)
	headers.Set("Origin", "https://"+profile.Host)
	headers.Set("Referer", "https://"+profile.Host+"/watch?v="+rc.VideoID)
	headers.Set("X-Youtube-Client-Name", fmt.Sprintf("%d", profile.ClientCode))
	headers.Set("X-Youtube-Client-Version", profile.Version)
	if rc.VisitorData != "" {
		headers.Set("X-Goog-Visitor-Id", rc.VisitorData)
	}
	if profile.SupportsAuth && rc.Authorization != "" {
		headers.Set("Authorization", rc.Authorization)
	}
	for k, values := range profile.Headers {
		for _, v := range values {
			headers.Add(k, v)
		}
	}

	endpoint := "https://" + profile.Host + "/youtubei/v1/player"
	if profile.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(profile.APIKey)
	}

	return &PlayerCall{URL: endpoint, Payload: payload, Headers: headers}, nil
}

func applyDeviceDefaults(client *clientInfo, profile Profile) {
	switch strings.ToUpper(profile.Name) {
	case "ANDROID":
		client.OsName = "Android"
		client.OsVersion = "11"
		client.DeviceMake = "Google"
		client.DeviceModel = "Pixel 5"
		client.AndroidSdkVersion = 30
	case "IOS":
		client.OsName = "iOS"
		client.OsVersion = "18.3.2.22D82"
		client.DeviceMake = "Apple"
		client.DeviceModel = "iPhone16,2"
	case "MWEB":
		client.OsName = "Android"
		client.OsVersion = "11"
		client.DeviceMake = "Google"
		client.DeviceModel = "Pixel 5"
	case "TVHTML5", "TVHTML5_SIMPLY_EMBEDDED_PLAYER":
		client.OsName = "Cobalt"
		client.OsVersion = "25"
	default:
		client.OsName = "Windows"
		client.OsVersion = "10.0"
	}
}
