package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/mohitagarwal24/ResQ/internal/config"
)

// Client Pinata 固定服务客户端。核心只把返回的 CID 当作
// 不透明字符串保存，从不解读内容。
type Client struct {
	endpoint   string
	jwt        string
	httpClient *http.Client
}

// NewClient 创建 Pinata 客户端
func NewClient(cfg config.IPFSConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		jwt:      cfg.JWT,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Enabled 是否配置了上传凭证
func (c *Client) Enabled() bool {
	return c.jwt != ""
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinFile 上传文件并返回 CID
func (c *Client) PinFile(ctx context.Context, filename string, reader io.Reader) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("未配置 Pinata JWT")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("构造上传表单失败: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return "", fmt.Errorf("读取上传内容失败: %w", err)
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"name": filename,
		"keyvalues": map[string]string{
			"uploadedBy": "ResQ",
		},
	})
	_ = writer.WriteField("pinataMetadata", string(metadata))
	_ = writer.WriteField("pinataOptions", `{"cidVersion":0}`)

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("关闭上传表单失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", fmt.Errorf("构造上传请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("上传请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("Pinata 返回 %d: %s", resp.StatusCode, string(msg))
	}

	var result pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析上传响应失败: %w", err)
	}
	if result.IpfsHash == "" {
		return "", fmt.Errorf("上传响应缺少 IpfsHash")
	}
	return result.IpfsHash, nil
}
