package handler

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/cinematch/internal/middleware"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/service"
	"github.com/user/cinematch/internal/utils"
)

// 描述仅接受 ASCII 文本，非英文输入在到达检索核心之前拒绝
var asciiOnly = regexp.MustCompile(`^[\x00-\x7F]+$`)

// Recommend 推荐检索入口
// description 可选；七个筛选维度可任意组合；offset/limit 分页。
// 无法解析的筛选值直接 400 拒绝——静默忽略会悄悄放宽结果，比报错更糟。
func (h *Handler) Recommend(c *gin.Context) {
	desc := c.Query("description")
	if desc != "" && !asciiOnly.MatchString(desc) {
		utils.BadRequest(c, "描述仅支持英文文本")
		return
	}

	req := service.RecommendRequest{Description: desc}

	var err error
	var filter model.MovieFilter
	if filter.GenreID, err = queryInt(c, "genre"); err != nil {
		utils.BadRequest(c, "genre 不合法")
		return
	}
	if filter.StudioID, err = queryInt(c, "studio"); err != nil {
		utils.BadRequest(c, "studio 不合法")
		return
	}
	if filter.DirectorID, err = queryInt(c, "director"); err != nil {
		utils.BadRequest(c, "director 不合法")
		return
	}
	if filter.ProducerID, err = queryInt(c, "producer"); err != nil {
		utils.BadRequest(c, "producer 不合法")
		return
	}
	if filter.CastID, err = queryInt(c, "cast_member"); err != nil {
		utils.BadRequest(c, "cast_member 不合法")
		return
	}
	if filter.YearFrom, err = queryInt(c, "year_from"); err != nil {
		utils.BadRequest(c, "year_from 不合法")
		return
	}
	if filter.YearTo, err = queryInt(c, "year_to"); err != nil {
		utils.BadRequest(c, "year_to 不合法")
		return
	}
	if filter.RatingFrom, err = queryFloat(c, "rating_from"); err != nil {
		utils.BadRequest(c, "rating_from 不合法")
		return
	}
	if filter.RatingTo, err = queryFloat(c, "rating_to"); err != nil {
		utils.BadRequest(c, "rating_to 不合法")
		return
	}
	req.Filter = filter

	if req.Offset, err = queryIntDefault(c, "offset", 0); err != nil || req.Offset < 0 {
		utils.BadRequest(c, "offset 不合法")
		return
	}
	if req.Limit, err = queryIntDefault(c, "limit", 5); err != nil || req.Limit <= 0 {
		utils.BadRequest(c, "limit 不合法")
		return
	}

	userID := middleware.GetUserIDPtr(c)
	if userID != nil {
		h.Repos.Activity.Log(userID, "search", map[string]interface{}{
			"ip_hash":     utils.HashIP(c.ClientIP()),
			"description": desc,
			"genre":       filter.GenreID,
			"studio":      filter.StudioID,
			"director":    filter.DirectorID,
			"producer":    filter.ProducerID,
			"cast_member": filter.CastID,
			"year_from":   filter.YearFrom,
			"year_to":     filter.YearTo,
			"rating_from": filter.RatingFrom,
			"rating_to":   filter.RatingTo,
		})
	}

	result, err := h.Recommender.Recommend(c.Request.Context(), req, userID)
	if err != nil {
		if errors.Is(err, service.ErrIndexNotBuilt) {
			utils.InternalServerError(c, "向量索引尚未就绪")
			return
		}
		utils.InternalServerError(c, "检索失败")
		return
	}

	c.JSON(200, gin.H{
		"movies":      result.Movies,
		"next_offset": result.NextOffset,
		"has_more":    result.HasMore,
	})
}

// SimilarMovies 某部电影的相似电影（pgvector 库内检索）
func (h *Handler) SimilarMovies(c *gin.Context) {
	movieID, err := pathInt(c, "id")
	if err != nil {
		utils.BadRequest(c, "电影 id 不合法")
		return
	}

	limit := 10
	if v, err := queryIntDefault(c, "limit", 10); err == nil && v > 0 && v <= 50 {
		limit = v
	}

	movie, err := h.Repos.Movie.FindByID(movieID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if movie == nil {
		utils.NotFound(c, "电影不存在")
		return
	}

	similar, err := h.Repos.Movie.FindSimilar(movieID, limit)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, similar)
}

// ==================== 参数解析 ====================

// queryInt 解析可选整型参数，缺省返回 nil，出现但解析失败返回错误
func queryInt(c *gin.Context, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryFloat 解析可选浮点参数
func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryIntDefault 解析带默认值的整型参数
func queryIntDefault(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// pathInt 解析路径整型参数
func pathInt(c *gin.Context, key string) (int, error) {
	return strconv.Atoi(c.Param(key))
}
