package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// ResourceKind discriminates the two shapes a browsed path can have.
type ResourceKind int

const (
	KindDirectory ResourceKind = iota
	KindFile
)

// Resource is the result of browsing a path: exactly one of Directory or
// File is non-nil, selected by Kind. The shape is determined by the
// discriminating fields of the server response ("files"/"directories"
// versus "file_path"), never by guessing.
type Resource struct {
	Kind      ResourceKind
	Directory *Directory
	File      *File
}

// Directory describes a directory in the pre-ingest file storage.
// Identifier is empty for directories that have no metadata yet
// (and for the storage root in some service versions).
type Directory struct {
	Identifier  string   `json:"identifier"`
	Directories []string `json:"directories"`
	Files       []string `json:"files"`
}

// File describes a single stored file.
type File struct {
	Identifier string `json:"identifier"`
	FilePath   string `json:"file_path"`
	MD5        string `json:"md5"`
	Timestamp  string `json:"timestamp"`
}

// FileRecord is a flattened per-file row produced by DirectoryFiles,
// joining a file's metadata with its parent directory's identifier.
type FileRecord struct {
	ParentDirectoryIdentifier string
	Identifier                string
	Checksum                  string
	Path                      string
}

// Project is a storage namespace with its quota, as returned by Projects.
type Project struct {
	Identifier string `json:"identifier"`
	UsedQuota  int64  `json:"used_quota"`
	Quota      int64  `json:"quota"`
}

// projectsResponse wraps the array in GET /v1/users/projects.
type projectsResponse struct {
	Projects []Project `json:"projects"`
}

// Projects lists the projects accessible to the authenticated user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var pr projectsResponse
	if err := c.getJSON(ctx, c.usersAPI+"/projects", &pr); err != nil {
		return nil, err
	}

	return pr.Projects, nil
}

// Browse fetches the descriptor of a file or directory path within a
// project. A 404 with a structured JSON body is translated into
// *NotFoundError carrying the server's message; any other non-2xx status
// surfaces as *APIError. Plain 404s are not trusted to mean a missing
// storage path since they may come from an unmapped route.
func (c *Client) Browse(ctx context.Context, project, p string) (*Resource, error) {
	resp, err := c.do(ctx, http.MethodGet, c.resourceURL(project, p))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound && apiErr.IsJSON() {
			var payload struct {
				Error string `json:"error"`
			}
			if jsonErr := json.Unmarshal(apiErr.Body, &payload); jsonErr == nil && payload.Error != "" {
				return nil, &NotFoundError{Message: payload.Error}
			}
		}

		return nil, err
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("storage: decoding resource %q: %w", p, err)
	}

	return parseResource(raw)
}

// parseResource dispatches on the discriminating field set of a files API
// response body.
func parseResource(raw map[string]json.RawMessage) (*Resource, error) {
	if _, ok := raw["file_path"]; ok {
		var f File
		if err := unmarshalFields(raw, &f); err != nil {
			return nil, err
		}

		return &Resource{Kind: KindFile, File: &f}, nil
	}

	_, hasFiles := raw["files"]
	_, hasDirs := raw["directories"]

	if hasFiles || hasDirs {
		var d Directory
		if err := unmarshalFields(raw, &d); err != nil {
			return nil, err
		}

		return &Resource{Kind: KindDirectory, Directory: &d}, nil
	}

	return nil, fmt.Errorf("storage: response is neither a file nor a directory descriptor")
}

// unmarshalFields re-marshals a raw field map into a typed descriptor.
func unmarshalFields(raw map[string]json.RawMessage, v any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("storage: reassembling resource fields: %w", err)
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("storage: decoding resource fields: %w", err)
	}

	return nil
}

// directoryTree is the full listing from GET /v1/files/{project}?all=true,
// preserving the server's directory order. Go maps do not keep JSON key
// order, so the object is parsed token by token.
type directoryTree struct {
	dirs  []string
	files map[string][]string
}

// parseDirectoryTree decodes a JSON object of {"<dir>": ["<file>", ...]}
// keeping key order.
func parseDirectoryTree(data []byte) (*directoryTree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("storage: decoding directory tree: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("storage: directory tree is not a JSON object")
	}

	tree := &directoryTree{files: make(map[string][]string)}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("storage: decoding directory tree key: %w", err)
		}

		dir, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("storage: directory tree key is not a string")
		}

		var files []string
		if err := dec.Decode(&files); err != nil {
			return nil, fmt.Errorf("storage: decoding files of %q: %w", dir, err)
		}

		tree.dirs = append(tree.dirs, dir)
		tree.files[dir] = files
	}

	return tree, nil
}

// DirectoryFiles fetches metadata for every file under target (including
// subdirectories) and joins it with the identifier of each file's parent
// directory. Records are returned in the traversal order of the server's
// tree listing.
func (c *Client) DirectoryFiles(ctx context.Context, project, target string) ([]FileRecord, error) {
	treeURL := fmt.Sprintf("%s/%s?%s", c.filesAPI, url.PathEscape(project),
		url.Values{"all": {"true"}}.Encode())

	resp, err := c.do(ctx, http.MethodGet, treeURL)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()

	if err != nil {
		return nil, fmt.Errorf("storage: reading directory tree: %w", err)
	}

	tree, err := parseDirectoryTree(body)
	if err != nil {
		return nil, err
	}

	var filePaths []string

	for _, dir := range tree.dirs {
		for _, name := range tree.files[dir] {
			p := path.Join(dir, name)
			if strings.HasPrefix(p, target) {
				filePaths = append(filePaths, p)
			}
		}
	}

	records := make([]FileRecord, 0, len(filePaths))

	for _, filePath := range filePaths {
		file, err := c.browseFile(ctx, project, filePath)
		if err != nil {
			return nil, err
		}

		parent, err := c.browseDirectory(ctx, project, path.Dir(filePath))
		if err != nil {
			return nil, err
		}

		records = append(records, FileRecord{
			ParentDirectoryIdentifier: parent.Identifier,
			Identifier:                file.Identifier,
			Checksum:                  file.MD5,
			Path:                      file.FilePath,
		})
	}

	return records, nil
}

// browseFile browses p and requires a file descriptor.
func (c *Client) browseFile(ctx context.Context, project, p string) (*File, error) {
	res, err := c.Browse(ctx, project, p)
	if err != nil {
		return nil, err
	}

	if res.Kind != KindFile {
		return nil, fmt.Errorf("storage: %q is not a file", p)
	}

	return res.File, nil
}

// browseDirectory browses p and requires a directory descriptor.
func (c *Client) browseDirectory(ctx context.Context, project, p string) (*Directory, error) {
	res, err := c.Browse(ctx, project, p)
	if err != nil {
		return nil, err
	}

	if res.Kind != KindDirectory {
		return nil, fmt.Errorf("storage: %q is not a directory", p)
	}

	return res.Directory, nil
}
