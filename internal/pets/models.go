package pets

import (
	"encoding/json"
	"strconv"

	domainErrors "patas/pkg/domain-errors"
)

// Photo is an uploaded picture attached to a pet.
type Photo struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// Pet is the decoded backend representation. The backend speaks Portuguese
// field names; they are kept on the wire and translated here once.
type Pet struct {
	ID      string `json:"id"`
	Name    string `json:"nome"`
	Species string `json:"especie,omitempty"`
	Age     int    `json:"idade"`
	Breed   string `json:"raca,omitempty"`
	TutorID string `json:"tutorId,omitempty"`
	Photo   *Photo `json:"foto,omitempty"`
}

// Input carries the writable fields for create and update.
type Input struct {
	Name    string `json:"nome"`
	Species string `json:"especie"`
	Age     int    `json:"idade"`
	Breed   string `json:"raca,omitempty"`
}

type petDTO struct {
	ID      flexID          `json:"id"`
	Name    *string         `json:"nome"`
	Species string          `json:"especie"`
	Age     *float64        `json:"idade"`
	Breed   string          `json:"raca"`
	TutorID flexID          `json:"tutorId"`
	Photo   json.RawMessage `json:"foto"`
}

// Decode converts one backend record into a Pet. A record missing any of
// the required fields (id, nome, idade) is a malformed response; an
// incomplete foto object is dropped rather than failing the record.
func Decode(raw json.RawMessage) (Pet, error) {
	var dto petDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Pet{}, domainErrors.Wrap(err, domainErrors.CodeMalformedResponse, "invalid pet payload")
	}
	if dto.ID.value == "" || dto.Name == nil || *dto.Name == "" || dto.Age == nil {
		return Pet{}, domainErrors.New(domainErrors.CodeMalformedResponse, "pet record missing required fields")
	}

	return Pet{
		ID:      dto.ID.value,
		Name:    *dto.Name,
		Species: dto.Species,
		Age:     int(*dto.Age),
		Breed:   dto.Breed,
		TutorID: dto.TutorID.value,
		Photo:   decodePhoto(dto.Photo),
	}, nil
}

func decodePhoto(raw json.RawMessage) *Photo {
	if len(raw) == 0 {
		return nil
	}
	var p Photo
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if p.ID == "" || p.Name == "" || p.ContentType == "" || p.URL == "" {
		return nil
	}
	return &p
}

// flexID accepts identifiers serialized as strings or numbers.
type flexID struct {
	value string
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.value = s
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value = strconv.FormatFloat(n, 'f', -1, 64)
		return nil
	}
	// Null or an unexpected shape reads as absent.
	f.value = ""
	return nil
}
