// Package blobstore persists node results as JSON blobs in an Azure Blob
// Storage container.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/specialistvlad/conduit/internal/resultstore"
)

// Client is the subset of *azblob.Client the store needs.
type Client interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

var _ Client = (*azblob.Client)(nil)

// Store writes each result to "<prefix>/<label>.json" in one container.
type Store struct {
	client    Client
	container string
	prefix    string
}

var _ resultstore.Store = (*Store)(nil)

// New returns a store backed by client. The prefix defaults to "results".
func New(client Client, container, prefix string) *Store {
	if prefix == "" {
		prefix = "results"
	}
	return &Store{client: client, container: container, prefix: strings.Trim(prefix, "/")}
}

// NewFromConnectionString builds an azblob client from an account connection
// string of the form "AccountName=...;AccountKey=...;BlobEndpoint=...".
// Plain http endpoints, as used by Azurite, are allowed.
func NewFromConnectionString(connectionString, container, prefix string) (*Store, error) {
	if container == "" {
		return nil, fmt.Errorf("container name is required")
	}
	params := parseConnectionString(connectionString)
	accountName := params["AccountName"]
	accountKey := params["AccountKey"]
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("connection string must contain AccountName and AccountKey")
	}
	serviceURL := params["BlobEndpoint"]
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	}

	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}
	opts := &azblob.ClientOptions{}
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		opts.ClientOptions = azcore.ClientOptions{InsecureAllowCredentialWithHTTP: true}
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return New(client, container, prefix), nil
}

// Put uploads the record of one result.
func (s *Store) Put(ctx context.Context, label string, res result.Result) error {
	data, err := resultstore.EncodeRecord(label, res)
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}
	path := s.blobPath(label)
	_, err = s.client.UploadBuffer(ctx, s.container, path, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{"label": to.Ptr(url.QueryEscape(label))},
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr("application/json"),
		},
	})
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}
	ctxlog.FromContext(ctx).Debug("Result uploaded.", "label", label, "container", s.container, "blob", path)
	return nil
}

// Get downloads and decodes the record of one result.
func (s *Store) Get(ctx context.Context, label string) (result.Result, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blobPath(label), nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return result.Null(), resultstore.Wrap("get", label, resultstore.ErrNotFound)
	}
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, fmt.Errorf("failed to read blob data: %w", err))
	}
	rec, err := resultstore.DecodeRecord(data)
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	return rec.Result, nil
}

func (s *Store) blobPath(label string) string {
	segments := strings.Split(label, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.prefix + "/" + strings.Join(segments, "/") + ".json"
}

func parseConnectionString(connectionString string) map[string]string {
	parts := strings.Split(connectionString, ";")
	params := make(map[string]string, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, "=")
		if idx <= 0 {
			continue
		}
		params[part[:idx]] = part[idx+1:]
	}
	return params
}
