package embedded

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-flac/flacpicture"
	flac "github.com/go-flac/go-flac"
)

// pictureFromVorbisComments looks for a cover in Vorbis comments: a plain
// base64 COVERART image first, then a base64 METADATA_BLOCK_PICTURE, which
// holds a whole FLAC picture block rather than bare image bytes.
func pictureFromVorbisComments(raw map[string]interface{}) (*Picture, error) {
	if v := commentValue(raw, "coverart"); v != "" {
		data, err := decodeBase64(v)
		if err == nil && len(data) > 0 {
			mimeType := commentValue(raw, "coverartmime")
			return &Picture{Data: data, MIMEType: mimeType}, nil
		}
	}

	if v := commentValue(raw, "metadata_block_picture"); v != "" {
		data, err := decodeBase64(v)
		if err != nil {
			return nil, fmt.Errorf("decode picture block: %w", err)
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(flac.MetaDataBlock{Type: flac.Picture, Data: data})
		if err != nil {
			return nil, fmt.Errorf("parse picture block: %w", err)
		}
		if len(pic.ImageData) == 0 {
			return nil, errNoPicture
		}
		return &Picture{Data: pic.ImageData, MIMEType: pic.MIME}, nil
	}

	return nil, errNoPicture
}

func commentValue(raw map[string]interface{}, key string) string {
	for k, v := range raw {
		if !strings.EqualFold(k, key) {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return data, nil
}
