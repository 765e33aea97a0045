package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/utils"
	"golang.org/x/sync/singleflight"
)

var (
	yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	// 嵌入模型只认英文，抓取来的描述执行与 HTTP 写入口同一条 ASCII 规则
	asciiText = regexp.MustCompile(`^[\x00-\x7F]*$`)
)

// Importer 按 URL 导入电影
// 抓取页面的 Open Graph 元信息和常见结构化标签，拼出写入参数后
// 走正常的写入路径（含向量计算和索引维护）。
type Importer struct {
	movies *MovieService
	client *utils.HTTPClient
	sf     singleflight.Group // 防止并发重复抓取同一页面
}

// NewImporter 创建导入服务
func NewImporter(movies *MovieService) *Importer {
	return &Importer{
		movies: movies,
		client: utils.NewHTTPClient(),
	}
}

// ImportFromURL 抓取并入库一部电影
func (s *Importer) ImportFromURL(ctx context.Context, pageURL string) (*model.Movie, error) {
	val, err, _ := s.sf.Do(pageURL, func() (interface{}, error) {
		input, err := s.scrape(pageURL)
		if err != nil {
			return nil, err
		}
		return s.movies.Create(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.Movie), nil
}

// scrape 抓取页面并解析出写入参数
func (s *Importer) scrape(pageURL string) (*MovieInput, error) {
	body, err := s.client.GetBody(pageURL)
	if err != nil {
		return nil, fmt.Errorf("抓取页面失败: %w", err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("解析页面失败: %w", err)
	}

	input := &MovieInput{PageURL: pageURL}

	// 1. Open Graph 元信息
	input.Title = strings.TrimSpace(metaContent(doc, "og:title"))
	input.Description = strings.TrimSpace(metaContent(doc, "og:description"))
	input.PosterURL = strings.TrimSpace(metaContent(doc, "og:image"))

	if input.Title == "" {
		input.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if input.Title == "" {
		return nil, fmt.Errorf("页面缺少标题，无法导入: %s", pageURL)
	}
	if !asciiText.MatchString(input.Description) {
		return nil, fmt.Errorf("页面描述含非英文文本，无法导入: %s", pageURL)
	}

	// 2. 年份：先看 video:release_date，再从标题里捞四位年份
	if release := metaContent(doc, "video:release_date"); len(release) >= 4 {
		if y, err := strconv.Atoi(release[:4]); err == nil {
			input.Year = &y
		}
	}
	if input.Year == nil {
		if match := yearPattern.FindString(input.Title); match != "" {
			y, _ := strconv.Atoi(match)
			input.Year = &y
		}
	}

	// 3. 导演/演员：video 系列元标签，有多少拿多少
	if director := metaContent(doc, "video:director"); director != "" {
		d := director
		input.Director = &d
	}
	doc.Find(`meta[property="video:actor"]`).Each(func(i int, sel *goquery.Selection) {
		if name, ok := sel.Attr("content"); ok && strings.TrimSpace(name) != "" {
			input.Cast = append(input.Cast, strings.TrimSpace(name))
		}
	})
	doc.Find(`meta[property="video:tag"]`).Each(func(i int, sel *goquery.Selection) {
		if tag, ok := sel.Attr("content"); ok && strings.TrimSpace(tag) != "" {
			input.Genres = append(input.Genres, strings.TrimSpace(tag))
		}
	})

	// 4. 时长（秒转分钟）
	if duration := metaContent(doc, "video:duration"); duration != "" {
		if secs, err := strconv.Atoi(duration); err == nil && secs > 0 {
			input.Duration = secs / 60
		}
	}

	return input, nil
}

// metaContent 取一个 meta property 的 content
func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return content
}
