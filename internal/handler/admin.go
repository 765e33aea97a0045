package handler

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/user/cinematch/internal/service"
	"github.com/user/cinematch/internal/utils"
)

// ==================== 管理后台：电影维护 ====================

// AdminCreateMovie 新建电影
func (h *Handler) AdminCreateMovie(c *gin.Context) {
	var input service.MovieInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "参数不合法: "+err.Error())
		return
	}

	movie, err := h.Movies.Create(c.Request.Context(), &input)
	if err != nil {
		log.Printf("[Admin] 新建电影失败: %v", err)
		utils.InternalServerError(c, "新建电影失败")
		return
	}

	utils.CacheDelete("filters:home")
	utils.Success(c, movie)
}

// AdminUpdateMovie 编辑电影
func (h *Handler) AdminUpdateMovie(c *gin.Context) {
	movieID, err := pathInt(c, "id")
	if err != nil {
		utils.BadRequest(c, "电影 id 不合法")
		return
	}

	var input service.MovieInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequest(c, "参数不合法: "+err.Error())
		return
	}

	movie, err := h.Movies.Update(c.Request.Context(), movieID, &input)
	if err != nil {
		log.Printf("[Admin] 编辑电影 %d 失败: %v", movieID, err)
		utils.InternalServerError(c, "编辑电影失败")
		return
	}
	if movie == nil {
		utils.NotFound(c, "电影不存在")
		return
	}

	utils.CacheDelete("filters:home")
	utils.Success(c, movie)
}

// AdminDeleteMovie 删除电影
func (h *Handler) AdminDeleteMovie(c *gin.Context) {
	movieID, err := pathInt(c, "id")
	if err != nil {
		utils.BadRequest(c, "电影 id 不合法")
		return
	}

	if err := h.Movies.Delete(movieID); err != nil {
		log.Printf("[Admin] 删除电影 %d 失败: %v", movieID, err)
		utils.InternalServerError(c, "删除电影失败")
		return
	}

	utils.CacheDelete("filters:home")
	utils.SuccessWithMessage(c, "已删除", nil)
}

type importRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// AdminImportMovie 按 URL 抓取导入电影
func (h *Handler) AdminImportMovie(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数不合法: "+err.Error())
		return
	}

	movie, err := h.Importer.ImportFromURL(c.Request.Context(), req.URL)
	if err != nil {
		log.Printf("[Admin] 导入 %s 失败: %v", req.URL, err)
		utils.InternalServerError(c, "导入失败: "+err.Error())
		return
	}

	utils.CacheDelete("filters:home")
	utils.Success(c, movie)
}

// AdminReindex 手动触发一次全量索引重建
func (h *Handler) AdminReindex(c *gin.Context) {
	if err := h.Index.Rebuild(); err != nil {
		log.Printf("[Admin] 手动重建索引失败: %v", err)
		utils.InternalServerError(c, "重建索引失败")
		return
	}

	// 重建通常跟在批量数据订正之后，端点缓存一并作废
	utils.CacheClear()

	idx, err := h.Index.Current()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, gin.H{"indexed": idx.Len()})
}
