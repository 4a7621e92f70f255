package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client는 지갑 노드 REST 클라이언트
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient는 새 API 클라이언트 생성. 집계 요청이 길어질 수 있어 타임아웃을 넉넉히 둔다.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// RestResp는 API 응답 래퍼
type RestResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Connection은 /api/v1/connections 항목
type Connection struct {
	Family      string `json:"family"`
	Address     string `json:"address"`
	Provider    string `json:"provider"`
	Label       string `json:"label"`
	ConnectedAt int64  `json:"connectedAt"`
}

// Asset은 자산 레코드
type Asset struct {
	Family       string   `json:"family"`
	Owner        string   `json:"owner"`
	Network      string   `json:"network"`
	Symbol       string   `json:"symbol"`
	Amount       float64  `json:"amount"`
	UnitPrice    float64  `json:"unitPrice"`
	FiatValue    float64  `json:"fiatValue"`
	Unpriced     bool     `json:"unpriced"`
	CostBasis    *float64 `json:"costBasis"`
	ProfitOrLoss *float64 `json:"profitOrLoss"`
}

// Assets는 /api/v1/assets 응답
type Assets struct {
	Records   []Asset `json:"records"`
	TotalFiat float64 `json:"totalFiat"`
	LastPass  int64   `json:"lastPass"`
}

// GetConnections는 활성 연결 목록 조회
func (c *Client) GetConnections() ([]Connection, error) {
	resp, err := c.do("GET", "/api/v1/connections", nil)
	if err != nil {
		return nil, err
	}
	var out []Connection
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("parse connections: %w", err)
	}
	return out, nil
}

// GetAssets는 마지막 집계 결과 조회
func (c *Client) GetAssets() (*Assets, error) {
	return c.assets("GET", "/api/v1/assets")
}

// RefreshAssets는 집계 1회 실행 후 결과 조회
func (c *Client) RefreshAssets() (*Assets, error) {
	return c.assets("POST", "/api/v1/assets/refresh")
}

// Disconnect는 연결 해제
func (c *Client) Disconnect(family, address string) error {
	_, err := c.do("DELETE", "/api/v1/connections/"+url.PathEscape(family)+"/"+url.PathEscape(address), nil)
	return err
}

// IsAlive는 노드 생존 여부 확인
func (c *Client) IsAlive() bool {
	_, err := c.do("GET", "/", nil)
	return err == nil
}

func (c *Client) assets(method, path string) (*Assets, error) {
	resp, err := c.do(method, path, nil)
	if err != nil {
		return nil, err
	}
	var out Assets
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("parse assets: %w", err)
	}
	return &out, nil
}

func (c *Client) do(method, path string, body interface{}) (*RestResp, error) {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}

	var req *http.Request
	var err error
	if rd != nil {
		req, err = http.NewRequest(method, c.baseURL+path, rd)
	} else {
		req, err = http.NewRequest(method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result RestResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("api error (%s): %s", result.Code, result.Error)
	}

	return &result, nil
}
