package models

// CandidatePhoto is a provider-neutral photo returned by an image source.
type CandidatePhoto struct {
	SourceID         string           `json:"id"`
	Provider         string           `json:"provider"`
	Description      string           `json:"description"`
	URLs             PhotoURLs        `json:"urls"`
	Attribution      PhotoAttribution `json:"photographer"`
	Width            int              `json:"width"`
	Height           int              `json:"height"`
	Likes            int              `json:"likes"`
	HTMLURL          string           `json:"html_url"`
	DownloadLocation string           `json:"-"`
}

type PhotoURLs struct {
	Raw     string `json:"raw,omitempty"`
	Full    string `json:"full,omitempty"`
	Regular string `json:"regular"`
	Small   string `json:"small,omitempty"`
	Thumb   string `json:"thumb,omitempty"`
}

type PhotoAttribution struct {
	Name       string `json:"name"`
	Username   string `json:"username,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// PostURL is the resolution sent to the backend.
func (p CandidatePhoto) PostURL() string {
	if p.URLs.Regular != "" {
		return p.URLs.Regular
	}
	if p.URLs.Full != "" {
		return p.URLs.Full
	}
	return p.URLs.Raw
}

// DedupeKey identifies a photo across providers.
func (p CandidatePhoto) DedupeKey() string {
	return p.Provider + ":" + p.SourceID
}
