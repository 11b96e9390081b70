package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/botgate/logging"
)

// ConfigRequest is the payload for replacing the storage path mapping.
type ConfigRequest struct {
	OutputPath       string `json:"output_path" binding:"required"`
	IntermediatePath string `json:"intermediate_path" binding:"required"`
	KnowledgePath    string `json:"knowledge_path" binding:"required"`
}

// Item describes one directory entry in a browse listing. Size is zero for
// folders.
type Item struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// ProviderOptions configures a Provider.
type ProviderOptions struct {
	// Logger receives storage access logs. Defaults to a no-op logger.
	Logger logging.Logger
}

// Provider mounts the storage inspection routes over a Manager: one config
// endpoint plus browse/read endpoints per category. Browse and read refuse
// any path that resolves outside the category root.
type Provider struct {
	manager Manager
	logger  logging.Logger
}

// NewProvider creates a Provider over the given manager.
func NewProvider(manager Manager, optFns ...func(o *ProviderOptions)) *Provider {
	opts := ProviderOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Provider{
		manager: manager,
		logger:  opts.Logger,
	}
}

// Mount registers the storage routes on r. Categories get explicit routes, so
// an unknown category falls through to the router's 404.
func (p *Provider) Mount(r gin.IRouter) {
	r.POST("/storage/config", p.setConfig)

	for _, category := range Categories() {
		r.GET(fmt.Sprintf("/storage/%s/browse", category), p.browseHandler(category))
		r.GET(fmt.Sprintf("/storage/%s/read", category), p.readHandler(category))
	}
}

func (p *Provider) setConfig(c *gin.Context) {
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if err := p.manager.Configure(req.OutputPath, req.IntermediatePath, req.KnowledgePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	p.logger.Info("storage.config.updated",
		"output", req.OutputPath, "intermediate", req.IntermediatePath, "knowledge", req.KnowledgePath)
	c.JSON(http.StatusOK, gin.H{"status": "configured"})
}

// browseHandler lists one directory under the category root.
func (p *Provider) browseHandler(category Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		base, err := p.manager.Path(category)
		if err != nil {
			p.renderManagerError(c, err)
			return
		}

		target, ok := resolveWithin(base, c.Query("path"))
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"detail": "access denied: path escapes storage root"})
			return
		}

		info, err := os.Stat(target)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "path not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}

		if !info.IsDir() {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "path is not a directory"})
			return
		}

		entries, err := os.ReadDir(target)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}

		items := make([]Item, 0, len(entries))
		for _, entry := range entries {
			item := Item{Name: entry.Name(), Type: "file"}
			if entry.IsDir() {
				item.Type = "folder"
			} else if fi, err := entry.Info(); err == nil {
				item.Size = fi.Size()
			}
			items = append(items, item)
		}

		// Folders first, then lexical by name.
		sort.Slice(items, func(i, j int) bool {
			if (items[i].Type == "folder") != (items[j].Type == "folder") {
				return items[i].Type == "folder"
			}
			return items[i].Name < items[j].Name
		})

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// readHandler returns one file's content under the category root. Files with
// a .json extension are parsed so clients receive structured content.
func (p *Provider) readHandler(category Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		rel := c.Query("path")
		if rel == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "path query parameter is required"})
			return
		}

		base, err := p.manager.Path(category)
		if err != nil {
			p.renderManagerError(c, err)
			return
		}

		target, ok := resolveWithin(base, rel)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"detail": "access denied: path escapes storage root"})
			return
		}

		info, err := os.Stat(target)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusNotFound, gin.H{"detail": "file not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}

		if info.IsDir() {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "path is not a file"})
			return
		}

		data, err := os.ReadFile(target)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}

		if filepath.Ext(target) == ".json" {
			var parsed any
			if err := json.Unmarshal(data, &parsed); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("invalid JSON content: %v", err)})
				return
			}
			c.JSON(http.StatusOK, gin.H{"content": parsed})
			return
		}

		c.JSON(http.StatusOK, gin.H{"content": string(data)})
	}
}

// renderManagerError maps manager failures onto status codes: a missing
// config entry is a client problem, a vanished directory is a server one.
func (p *Provider) renderManagerError(c *gin.Context, err error) {
	var catErr *CategoryError
	if errors.As(err, &catErr) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

// resolveWithin resolves rel against base and reports whether the result
// stays inside base. Symlinks are resolved before the containment check, so
// a link placed inside the root that points outside it is rejected instead
// of served; cleaned ".." segments cannot escape either. Absolute paths are
// allowed as long as they land inside the root.
func resolveWithin(base, rel string) (string, bool) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	realBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", false
	}

	target := rel
	if filepath.IsAbs(target) {
		target = filepath.Clean(target)
	} else {
		target = filepath.Join(realBase, target)
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", false
		}
		// Nothing on disk yet; the lexical form cannot leak content and
		// the handler's stat turns it into a 404.
		resolved = target
	}

	relPath, err := filepath.Rel(realBase, resolved)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", false
	}

	return resolved, true
}
