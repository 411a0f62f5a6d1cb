// Package objstore 执行归档操作
//
// 文章原文和生成结果超出保留窗口后从数据库清理，
// 归档副本落到对象存储供审计回溯。
package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"titlegen-admin/internal/shared/model"
)

// ArchivedExecution 归档的执行记录
type ArchivedExecution struct {
	Execution  *model.Execution `json:"execution"`
	Article    string           `json:"article,omitempty"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// articleKey 文章对象键：articles/<projectID>/<executionID>.txt
func articleKey(projectID, executionID string) string {
	return fmt.Sprintf("articles/%s/%s.txt", projectID, executionID)
}

// executionKey 执行归档对象键：executions/<projectID>/<executionID>.json
func executionKey(projectID, executionID string) string {
	return fmt.Sprintf("executions/%s/%s.json", projectID, executionID)
}

// PutArticle 归档文章原文
func (c *Client) PutArticle(ctx context.Context, projectID, executionID, article string) error {
	reader := bytes.NewReader([]byte(article))
	return c.Upload(ctx, articleKey(projectID, executionID), reader, int64(len(article)), "text/plain; charset=utf-8")
}

// GetArticle 读取归档的文章原文
func (c *Client) GetArticle(ctx context.Context, projectID, executionID string) (string, error) {
	obj, err := c.Download(ctx, articleKey(projectID, executionID))
	if err != nil {
		return "", err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read article: %w", err)
	}
	return string(data), nil
}

// PutExecution 归档完整执行记录
func (c *Client) PutExecution(ctx context.Context, exec *model.Execution, article string) error {
	archived := &ArchivedExecution{
		Execution:  exec,
		Article:    article,
		ArchivedAt: time.Now(),
	}
	data, err := json.Marshal(archived)
	if err != nil {
		return fmt.Errorf("marshal execution archive: %w", err)
	}
	reader := bytes.NewReader(data)
	return c.Upload(ctx, executionKey(exec.ProjectID, exec.ID), reader, int64(len(data)), "application/json")
}

// GetExecution 读取归档的执行记录
func (c *Client) GetExecution(ctx context.Context, projectID, executionID string) (*ArchivedExecution, error) {
	obj, err := c.Download(ctx, executionKey(projectID, executionID))
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var archived ArchivedExecution
	if err := json.NewDecoder(obj).Decode(&archived); err != nil {
		return nil, fmt.Errorf("decode execution archive: %w", err)
	}
	return &archived, nil
}
