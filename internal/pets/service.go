package pets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"patas/internal/api"
	domainErrors "patas/pkg/domain-errors"
)

const (
	basePath = "/v1/pets"

	// searchParam is the backend's name-filter query parameter.
	searchParam = "nome"

	// photoField is the multipart form field the backend expects uploads in.
	photoField = "foto"
)

// Service exposes the pets collection over the authenticated pipeline.
type Service struct {
	client *api.Client
	logger *slog.Logger
}

func NewService(client *api.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// List fetches one page, decoding whichever pagination envelope the backend
// answers with. The query, when present, rides as the nome filter.
func (s *Service) List(ctx context.Context, req api.PageRequest) (api.Page[Pet], error) {
	raw, err := s.client.GetPage(ctx, basePath, req, searchParam)
	if err != nil {
		return api.Page[Pet]{}, err
	}
	return api.MapPage(raw, Decode)
}

func (s *Service) Get(ctx context.Context, id string) (*Pet, error) {
	resp, err := s.client.Do(ctx, api.Request{Method: http.MethodGet, Path: itemPath(id)})
	if err != nil {
		return nil, err
	}
	pet, err := Decode(resp.Body)
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (s *Service) Create(ctx context.Context, input Input) (*Pet, error) {
	return s.upsert(ctx, http.MethodPost, basePath, input)
}

func (s *Service) Update(ctx context.Context, id string, input Input) (*Pet, error) {
	return s.upsert(ctx, http.MethodPut, itemPath(id), input)
}

func (s *Service) upsert(ctx context.Context, method, path string, input Input) (*Pet, error) {
	resp, err := s.client.Do(ctx, api.Request{Method: method, Path: path, JSON: input})
	if err != nil {
		return nil, err
	}
	pet, err := Decode(resp.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Info("pet saved", "id", pet.ID, "name", pet.Name)
	return &pet, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, api.Request{Method: http.MethodDelete, Path: itemPath(id)})
	return err
}

// UploadPhoto posts the picture as a multipart form under the foto field.
func (s *Service) UploadPhoto(ctx context.Context, id, filename, contentType string, photo io.Reader) error {
	body, formType, err := encodePhotoForm(filename, contentType, photo)
	if err != nil {
		return err
	}
	_, err = s.client.Do(ctx, api.Request{
		Method:      http.MethodPost,
		Path:        itemPath(id) + "/fotos",
		Body:        body,
		ContentType: formType,
	})
	return err
}

func (s *Service) RemovePhoto(ctx context.Context, id, photoID string) error {
	_, err := s.client.Do(ctx, api.Request{
		Method: http.MethodDelete,
		Path:   itemPath(id) + "/fotos/" + url.PathEscape(photoID),
	})
	return err
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}

func encodePhotoForm(filename, contentType string, photo io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, photoField, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", domainErrors.Wrap(err, domainErrors.CodeInternal, "encoding photo upload")
	}
	if _, err := io.Copy(part, photo); err != nil {
		return nil, "", domainErrors.Wrap(err, domainErrors.CodeInternal, "reading photo")
	}
	if err := writer.Close(); err != nil {
		return nil, "", domainErrors.Wrap(err, domainErrors.CodeInternal, "finalizing photo upload")
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
