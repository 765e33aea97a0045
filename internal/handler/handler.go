package handler

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/middleware"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/service"
	"github.com/user/cinematch/internal/utils"
)

// Handler HTTP 处理器
// 所有依赖在进程启动时构建完成后注入，处理器自身无可变状态。
type Handler struct {
	Repos       *repository.Repositories
	Config      *config.Config
	Recommender *service.RecommendService
	Movies      *service.MovieService
	Importer    *service.Importer
	Index       *service.IndexService
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config,
	recommender *service.RecommendService, movies *service.MovieService,
	importer *service.Importer, index *service.IndexService) *Handler {
	return &Handler{
		Repos:       repos,
		Config:      cfg,
		Recommender: recommender,
		Movies:      movies,
		Importer:    importer,
		Index:       index,
	}
}

// ==================== 认证 ====================

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 注册
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数不合法: "+err.Error())
		return
	}

	existing, err := h.Repos.User.FindByEmail(req.Email)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if existing != nil {
		utils.BadRequest(c, "邮箱已被注册")
		return
	}

	user, err := h.Repos.User.Create(req.Email, req.Username, req.Password)
	if err != nil {
		utils.InternalServerError(c, "注册失败")
		return
	}

	h.issueToken(c, user)
	utils.Success(c, gin.H{"id": user.ID, "email": user.Email, "username": user.Username})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数不合法: "+err.Error())
		return
	}

	user, err := h.Repos.User.FindByEmail(req.Email)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if user == nil || !h.Repos.User.CheckPassword(user, req.Password) {
		utils.Unauthorized(c, "邮箱或密码错误")
		return
	}

	h.issueToken(c, user)

	uid := user.ID
	h.Repos.Activity.Log(&uid, "login", nil)
	utils.Success(c, gin.H{"id": user.ID, "email": user.Email, "username": user.Username, "role": user.Role})
}

// Logout 登出
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", false, true)
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	utils.Success(c, nil)
}

// issueToken 下发 JWT Cookie 并写 Session 用户信息
func (h *Handler) issueToken(c *gin.Context, user *model.User) {
	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		return
	}
	c.SetCookie("token", token, int(h.Config.JWTExpiry.Seconds()), "/", "", false, true)

	session := sessions.Default(c)
	session.Set("userinfo", model.SessionUser{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	})
	_ = session.Save()
}

// ==================== 收藏与打分 ====================

// ToggleFavorite 切换收藏状态
func (h *Handler) ToggleFavorite(c *gin.Context) {
	userID := middleware.GetUserID(c)
	movieID, err := pathInt(c, "id")
	if err != nil {
		utils.BadRequest(c, "电影 id 不合法")
		return
	}

	faved, err := h.Repos.Favorite.IsFavorited(userID, movieID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	if faved {
		err = h.Repos.Favorite.Remove(userID, movieID)
	} else {
		err = h.Repos.Favorite.Add(userID, movieID)
	}
	if err != nil {
		utils.InternalServerError(c, "操作失败")
		return
	}

	h.Repos.Activity.Log(&userID, "toggle_fav", map[string]interface{}{
		"movie_id": movieID,
		"faved":    !faved,
	})
	utils.Success(c, gin.H{"faved": !faved})
}

// Favorites 当前用户的收藏列表
func (h *Handler) Favorites(c *gin.Context) {
	userID := middleware.GetUserID(c)
	movies, err := h.Repos.Favorite.ListMoviesByUser(userID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, movies)
}

type rateRequest struct {
	Rating int `json:"rating" binding:"required,min=1,max=10"`
}

// RateModel 用户给推荐结果打分
func (h *Handler) RateModel(c *gin.Context) {
	userID := middleware.GetUserID(c)
	movieID, err := pathInt(c, "id")
	if err != nil {
		utils.BadRequest(c, "电影 id 不合法")
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "打分必须在 1-10 之间")
		return
	}

	if err := h.Repos.Rating.Upsert(userID, movieID, req.Rating); err != nil {
		utils.InternalServerError(c, "打分失败")
		return
	}

	h.Repos.Activity.Log(&userID, "rate_model", map[string]interface{}{
		"movie_id": movieID,
		"score":    req.Rating,
	})

	avg, err := h.Repos.Rating.Average(movieID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, gin.H{"avg_model_rating": avg})
}

// ==================== 筛选维度 ====================

// Filters 首页筛选器数据：下拉列表 + 年份/评分上下界
func (h *Handler) Filters(c *gin.Context) {
	const cacheKey = "filters:home"
	if cached, found := utils.CacheGet(cacheKey); found {
		utils.Success(c, cached)
		return
	}

	genres, err := h.Repos.Genre.ListAll()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	studios, err := h.Repos.Studio.ListAll()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	directors, err := h.Repos.Director.ListAll()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	bounds, err := h.Repos.Movie.FilterBounds()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	data := gin.H{
		"genres":     genres,
		"studios":    studios,
		"directors":  directors,
		"min_year":   bounds.MinYear,
		"max_year":   bounds.MaxYear,
		"min_rating": bounds.MinRating,
		"max_rating": bounds.MaxRating,
	}
	utils.CacheSet(cacheKey, data, 5*time.Minute)
	utils.Success(c, data)
}

// LookupSearch 下拉框联想搜索，按维度分发
func (h *Handler) LookupSearch(c *gin.Context) {
	dimension := c.Param("dimension")
	q := c.Query("q")

	cacheKey := "lookup:" + dimension + ":" + q
	if cached, found := utils.CacheGet(cacheKey); found {
		utils.Success(c, cached)
		return
	}

	const limit = 20
	var (
		opts []repository.Option
		err  error
	)
	switch dimension {
	case "genres":
		opts, err = h.Repos.Genre.SearchByName(q, limit)
	case "studios":
		opts, err = h.Repos.Studio.SearchByName(q, limit)
	case "directors":
		opts, err = h.Repos.Director.SearchByName(q, limit)
	case "producers":
		opts, err = h.Repos.Producer.SearchByName(q, limit)
	case "cast":
		opts, err = h.Repos.Cast.SearchByName(q, limit)
	default:
		utils.NotFound(c, "未知的筛选维度: "+dimension)
		return
	}
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	utils.CacheSet(cacheKey, opts, time.Minute)
	utils.Success(c, opts)
}
