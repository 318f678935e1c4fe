package feed

import (
	"encoding/json"
	"fmt"
)

// streamEnvelope is the wire shape of one sampled-stream record.
type streamEnvelope struct {
	Data struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		Lang     string `json:"lang"`
		AuthorID string `json:"author_id"`
		Entities *struct {
			URLs []struct {
				ExpandedURL string `json:"expanded_url"`
				URL         string `json:"url"`
			} `json:"urls"`
			Mentions []struct {
				Username string `json:"username"`
			} `json:"mentions"`
			Hashtags []struct {
				Tag string `json:"tag"`
			} `json:"hashtags"`
		} `json:"entities"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"users"`
	} `json:"includes"`
}

// decodeStreamRecord decodes one stream line into an Item. Undecodable or
// empty records yield ErrMalformedRecord.
func decodeStreamRecord(line []byte) (*Item, error) {
	var env streamEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if env.Data.ID == "" && env.Data.Text == "" {
		return nil, fmt.Errorf("%w: record has no data", ErrMalformedRecord)
	}

	item := &Item{
		ID:       env.Data.ID,
		AuthorID: env.Data.AuthorID,
		Text:     env.Data.Text,
		Lang:     env.Data.Lang,
	}

	for _, u := range env.Includes.Users {
		if u.ID == env.Data.AuthorID {
			item.AuthorName = u.Name
			break
		}
	}
	if item.AuthorName == "" && len(env.Includes.Users) > 0 {
		item.AuthorName = env.Includes.Users[0].Name
	}

	if e := env.Data.Entities; e != nil {
		ents := &Entities{}
		for _, u := range e.URLs {
			if u.ExpandedURL != "" {
				ents.URLs = append(ents.URLs, u.ExpandedURL)
			} else if u.URL != "" {
				ents.URLs = append(ents.URLs, u.URL)
			}
		}
		for _, m := range e.Mentions {
			ents.Mentions = append(ents.Mentions, m.Username)
		}
		for _, h := range e.Hashtags {
			ents.Hashtags = append(ents.Hashtags, h.Tag)
		}
		if len(ents.URLs)+len(ents.Mentions)+len(ents.Hashtags) > 0 {
			item.Entities = ents
		}
	}

	return item, nil
}
