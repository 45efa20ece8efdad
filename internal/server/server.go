package server

import (
	"fmt"
	"path/filepath"

	"github.com/gin-gonic/gin"

	v1 "ehr/internal/api/v1"
	"ehr/internal/config"
	"ehr/internal/importer"
	"ehr/internal/parser"
	"ehr/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	v1     *v1.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}
	sqliteStore, err := store.New(filepath.Join(dataDir, "ehr.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	coordinator, err := NewCoordinator(cfg, sqliteStore)
	if err != nil {
		_ = sqliteStore.Close()
		return nil, err
	}

	return New(sqliteStore, coordinator, filepath.Join(dataDir, "uploads"), cfg), nil
}

// NewCoordinator 按配置创建导入协调器（模板坐标表可由 TOML 覆盖）
func NewCoordinator(cfg *config.AppConfig, s *store.Store) (*importer.Coordinator, error) {
	registry, err := parser.LoadTemplates(cfg.Excel.TemplateMapPath)
	if err != nil {
		return nil, err
	}
	return importer.NewCoordinator(s, s, importer.Options{
		Registry:             registry,
		HeaderSearchRows:     cfg.Import.HeaderSearchRows,
		RejectUnresolvedDate: cfg.Import.RejectUnresolvedDate,
	}), nil
}

// New 用已创建的依赖组装服务器（测试使用）
func New(s *store.Store, coordinator *importer.Coordinator, uploadDir string, cfg *config.AppConfig) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.DevMode {
		router.Use(gin.Logger())
	}

	srv := &Server{
		router: router,
		store:  s,
		v1:     v1.NewHandler(s, coordinator, uploadDir, cfg.Import.RemoveDelay()),
	}
	srv.setupRoutes()
	return srv
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// V1 API 路由
	api := s.router.Group("/api")
	{
		s.v1.RegisterRoutes(api)
	}
}

// Handler 返回 http.Handler（测试使用）
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭数据库
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
