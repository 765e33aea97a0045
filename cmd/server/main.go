package main

import (
	"context"
	"encoding/gob"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/embedding"
	"github.com/user/cinematch/internal/handler"
	"github.com/user/cinematch/internal/middleware"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/router"
	"github.com/user/cinematch/internal/service"
	"github.com/user/cinematch/internal/utils"
	"github.com/user/cinematch/internal/vecindex"
)

func main() {
	// 注册 Session 模型
	gob.Register(model.SessionUser{})

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	// 初始化仓库
	repos := repository.NewRepositories(db)

	// 初始化缓存
	utils.InitCache()

	// 向量化客户端（模型由 Ollama 进程加载一次，只读共享）
	encoder := embedding.NewCachedEncoder(
		embedding.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.EmbeddingDim),
		1024, time.Hour,
	)

	// 启动时全量构建向量索引，之后增量维护 + 定时重建兜底
	indexSvc := service.NewIndexService(repos.Movie, cfg.EmbeddingDim, vecindex.Options{
		Clusters: cfg.IVFClusters,
		Nprobe:   cfg.IVFNprobe,
	}, cfg.RebuildDeletes, cfg.RebuildInterval)
	if err := indexSvc.Rebuild(); err != nil {
		log.Fatalf("向量索引构建失败: %v", err)
	}
	indexSvc.Start()
	defer indexSvc.Stop()

	// 每天清理一次过期的活动日志
	janitorStop := make(chan struct{})
	defer close(janitorStop)
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := repos.Activity.DeleteOld(90); err != nil {
					log.Printf("活动日志清理失败: %v", err)
				} else if n > 0 {
					log.Printf("已清理 %d 条过期活动日志", n)
				}
			case <-janitorStop:
				return
			}
		}
	}()

	// 业务服务
	movieSvc := service.NewMovieService(repos, encoder, indexSvc)
	recommendSvc := service.NewRecommendService(repos.Movie, repos.Favorite, encoder, indexSvc)
	importerSvc := service.NewImporter(movieSvc)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 设置 Session 中间件
	store := cookie.NewStore([]byte(cfg.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 天
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("cinematch_session", store))

	// 中间件
	r.Use(middleware.Logger())

	// 初始化 Handler
	h := handler.NewHandler(repos, cfg, recommendSvc, movieSvc, importerSvc, indexSvc)

	// 注册路由
	router.RegisterRoutes(r, h)

	// 配置 HTTP 服务器
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	srv := &http.Server{
		Addr:           ":" + port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Printf("服务器启动于 http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("服务器强制关闭:", err)
	}

	log.Println("服务器已退出")
}
