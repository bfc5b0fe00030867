package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/simple-mercari/listing/internal/storage"
)

// DefaultImageName is served for image requests of unknown items.
const DefaultImageName = "default.jpg"

type Options struct {
	Store storage.ItemStore
	// ImageDir holds uploaded images and DefaultImageName.
	ImageDir string
	// APIURL is the public origin used to build image links.
	APIURL string
	// FrontURL is the origin allowed to call the API from a browser.
	FrontURL string
}

// Server serves the items API.
type Server struct {
	store    storage.ItemStore
	imageDir string
	apiURL   string
	router   *gin.Engine
}

type itemResponse struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Image    string `json:"image,omitempty"`
}

type itemsResponse struct {
	Items []itemResponse `json:"items"`
}

func New(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		imageDir: opts.ImageDir,
		apiURL:   strings.TrimRight(opts.APIURL, "/"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors(opts.FrontURL))

	router.GET("/", s.handleRoot)
	router.POST("/items", s.handleAddItem)
	router.GET("/items", s.handleListItems)
	router.GET("/items/:id", s.handleGetItem)
	router.GET("/search", s.handleSearch)
	router.GET("/image/:file", s.handleImage)

	s.router = router
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello, world!"})
}

func (s *Server) handleAddItem(c *gin.Context) {
	name, ok := c.GetPostForm("name")
	if !ok {
		fail(c, http.StatusUnprocessableEntity, "field required: name")
		return
	}
	category, ok := c.GetPostForm("category")
	if !ok {
		fail(c, http.StatusUnprocessableEntity, "field required: category")
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, "field required: image")
		return
	}

	log.Info().Str("name", name).Msg("receive item")

	hashed, err := hashImageName(header.Filename)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to read image")
		return
	}
	defer file.Close()

	if err := s.saveImage(hashed, file); err != nil {
		log.Error().Err(err).Str("image", hashed).Msg("failed to save image")
		fail(c, http.StatusInternalServerError, "failed to save image")
		return
	}

	if _, err := s.store.AddItem(name, category, hashed); err != nil {
		log.Error().Err(err).Str("name", name).Msg("failed to add item")
		fail(c, http.StatusInternalServerError, "failed to add item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("item received: %s", name)})
}

func (s *Server) handleListItems(c *gin.Context) {
	items, err := s.store.ListItems()
	if err != nil {
		log.Error().Err(err).Msg("failed to list items")
		fail(c, http.StatusInternalServerError, "failed to list items")
		return
	}

	result := itemsResponse{Items: []itemResponse{}}
	for _, item := range items {
		result.Items = append(result.Items, s.toResponse(item))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "item id must be an integer")
		return
	}

	item, err := s.store.GetItem(id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get item")
		fail(c, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		fail(c, http.StatusNotFound, "item not found")
		return
	}

	c.JSON(http.StatusOK, s.toResponse(*item))
}

func (s *Server) handleSearch(c *gin.Context) {
	keyword, ok := c.GetQuery("keyword")
	if !ok {
		fail(c, http.StatusUnprocessableEntity, "field required: keyword")
		return
	}

	items, err := s.store.SearchItems(keyword)
	if err != nil {
		log.Error().Err(err).Str("keyword", keyword).Msg("failed to search items")
		fail(c, http.StatusInternalServerError, "failed to search items")
		return
	}

	result := itemsResponse{Items: []itemResponse{}}
	for _, item := range items {
		result.Items = append(result.Items, itemResponse{Name: item.Name, Category: item.Category})
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleImage(c *gin.Context) {
	file := c.Param("file")
	if !strings.HasSuffix(file, ".jpg") {
		fail(c, http.StatusBadRequest, "Image path does not end with .jpg")
		return
	}

	image := DefaultImageName
	if id, err := strconv.ParseInt(strings.TrimSuffix(file, ".jpg"), 10, 64); err == nil {
		stored, err := s.store.GetItemImage(id)
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to get item image")
			fail(c, http.StatusInternalServerError, "failed to get image")
			return
		}
		if stored != "" {
			image = stored
		}
	}
	if image == DefaultImageName {
		log.Debug().Str("image", file).Msg("image not found")
	}

	c.File(filepath.Join(s.imageDir, image))
}

func (s *Server) toResponse(item storage.Item) itemResponse {
	return itemResponse{
		Name:     item.Name,
		Category: item.Category,
		Image:    fmt.Sprintf("%s/image/%d.jpg", s.apiURL, item.ID),
	}
}

func (s *Server) saveImage(name string, src io.Reader) error {
	if err := os.MkdirAll(s.imageDir, 0755); err != nil {
		return fmt.Errorf("failed to create image dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(s.imageDir, name))
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// hashImageName renames an uploaded file to the sha256 of its base name,
// keeping the extension: "jacket.jpg" becomes "<hex>.jpg".
func hashImageName(filename string) (string, error) {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" || stem == "" {
		return "", fmt.Errorf("image file name must have a name and an extension: %q", filename)
	}
	sum := sha256.Sum256([]byte(stem))
	return hex.EncodeToString(sum[:]) + ext, nil
}

func fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
