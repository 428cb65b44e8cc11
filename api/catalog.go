package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/fieldbooking/internal/service/catalog"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	service catalog.CatalogUseCase
}

func NewCatalogHandler(service catalog.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) Register(router *gin.RouterGroup) {
	router.GET("/branches", h.listBranches)
	router.GET("/branches/:id", h.getBranch)
	router.GET("/fields", h.listFields)
	router.GET("/fields/:id", h.getField)
}

func (h *CatalogHandler) listBranches(c *gin.Context) {
	q := catalog.BranchQuery{
		Search: c.Query("q"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	respond(c, http.StatusOK, h.service.ListBranches(c.Request.Context(), q))
}

func (h *CatalogHandler) getBranch(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	branch, err := h.service.GetBranch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, branch)
}

func (h *CatalogHandler) listFields(c *gin.Context) {
	q := catalog.FieldQuery{
		BranchID: int64(queryInt(c, "branchId")),
		Limit:    queryInt(c, "limit"),
	}
	respond(c, http.StatusOK, h.service.ListFields(c.Request.Context(), q))
}

func (h *CatalogHandler) getField(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	field, err := h.service.GetField(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, field)
}

// queryInt treats a missing or malformed value as unset.
func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
