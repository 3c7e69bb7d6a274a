package backend

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/DukeRupert/guichet/internal/domain"
)

// Call carries the per-call identity of a typed backend operation.
type Call struct {
	Token string
	Tag   string
}

// Resource is the typed CRUD surface of one entity collection, e.g. "/banques".
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds an entity path to a client. The path is the collection
// root ("banques" or "/banques").
func NewResource[T any](client *Client, entityPath string) *Resource[T] {
	return &Resource[T]{
		client: client,
		path:   "/" + strings.Trim(entityPath, "/"),
	}
}

// Path returns the collection root.
func (r *Resource[T]) Path() string {
	return r.path
}

// FindAll fetches the whole collection: GET {path}/findall.
func (r *Resource[T]) FindAll(ctx context.Context, call Call) ([]T, error) {
	resp, err := r.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   r.path + "/findall",
		Tag:    call.Tag,
		Token:  call.Token,
	})
	if err != nil {
		return nil, err
	}
	return r.decodeList(call.Tag, resp)
}

// Search runs a server-side search: GET {path}/search?query=&page=&size=.
func (r *Resource[T]) Search(ctx context.Context, call Call, query string, page, size int) ([]T, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	resp, err := r.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   r.path + "/search",
		Query:  q,
		Tag:    call.Tag,
		Token:  call.Token,
	})
	if err != nil {
		return nil, err
	}
	return r.decodeList(call.Tag, resp)
}

// Create posts a new record: POST {path}/new. When the backend answers with
// an empty body the submitted record is returned.
func (r *Resource[T]) Create(ctx context.Context, call Call, record T) (T, error) {
	resp, err := r.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   r.path + "/new",
		Body:   record,
		Tag:    call.Tag,
		Token:  call.Token,
	})
	if err != nil {
		return record, err
	}
	created, err := DecodeOne(resp.Body, record)
	if err != nil {
		return record, domain.Internal(err, call.Tag, "decode created record")
	}
	return created, nil
}

// Update replaces a record: PUT {path}/update/{id}.
func (r *Resource[T]) Update(ctx context.Context, call Call, id string, record T) (T, error) {
	resp, err := r.client.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   r.path + "/update/" + url.PathEscape(id),
		Body:   record,
		Tag:    call.Tag,
		Token:  call.Token,
	})
	if err != nil {
		return record, err
	}
	updated, err := DecodeOne(resp.Body, record)
	if err != nil {
		return record, domain.Internal(err, call.Tag, "decode updated record")
	}
	return updated, nil
}

// Delete removes a record: DELETE {path}/delete/{id}.
func (r *Resource[T]) Delete(ctx context.Context, call Call, id string) error {
	_, err := r.client.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   r.path + "/delete/" + url.PathEscape(id),
		Tag:    call.Tag,
		Token:  call.Token,
	})
	return err
}

// Blob is a binary backend payload such as a PDF report.
type Blob struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Report downloads a binary report: GET {path}/report/{name}.
func (r *Resource[T]) Report(ctx context.Context, call Call, name string, query url.Values) (*Blob, error) {
	resp, err := r.client.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   r.path + "/report/" + url.PathEscape(name),
		Query:  query,
		Tag:    call.Tag,
		Token:  call.Token,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, domain.NotFound(call.Tag, "report", name)
	}

	contentType := resp.ContentType
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = "application/pdf"
	}
	return &Blob{
		Filename:    reportFilename(path.Base(r.path), name, contentType),
		ContentType: contentType,
		Data:        resp.Body,
	}, nil
}

func (r *Resource[T]) decodeList(tag string, resp *Response) ([]T, error) {
	items, err := DecodeList[T](resp.Body)
	if err != nil {
		return nil, domain.Internal(err, tag, "decode list response")
	}
	return items, nil
}

func reportFilename(entity, name, contentType string) string {
	ext := ".pdf"
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 && mediaType != "application/pdf" {
			ext = exts[0]
		}
	}
	return entity + "-" + name + ext
}
