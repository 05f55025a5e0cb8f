package server

import "encoding/xml"

// TwiML reply documents. Verbs execute in document order, so the voice
// response keeps its script in an ordered slice; each verb type carries
// its own element name.

type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

type voiceResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []interface{}
}

type say struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type record struct {
	XMLName            xml.Name `xml:"Record"`
	Timeout            int      `xml:"timeout,attr"`
	MaxLength          int      `xml:"maxLength,attr"`
	Transcribe         bool     `xml:"transcribe,attr"`
	TranscribeCallback string   `xml:"transcribeCallback,attr"`
}

type hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// voiceHangupResponse speaks one line and ends the call.
func voiceHangupResponse(line string) voiceResponse {
	return voiceResponse{Verbs: []interface{}{say{Text: line}, hangup{}}}
}
