package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// 지갑 노드 REST API 스모크 테스트.
// 키 생성, 연결, 자산 집계, 손익, 연결 해제를 순서대로 호출한다.

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type generated struct {
	ID      string `json:"id"`
	Family  string `json:"family"`
	Address string `json:"address"`
}

type assets struct {
	Records []struct {
		Network      string   `json:"network"`
		Symbol       string   `json:"symbol"`
		Amount       float64  `json:"amount"`
		FiatValue    float64  `json:"fiatValue"`
		Unpriced     bool     `json:"unpriced"`
		ProfitOrLoss *float64 `json:"profitOrLoss"`
	} `json:"records"`
	TotalFiat float64 `json:"totalFiat"`
	LastPass  int64   `json:"lastPass"`
}

var baseURL string

func main() {
	host := flag.String("url", "http://localhost:8090/api/v1", "wallet api base url")
	family := flag.String("family", "bitcoin", "family to generate and connect")
	flag.Parse()
	baseURL = *host

	fmt.Println("=== Starting API Test ===")

	// 1. 지원 체인 확인
	fmt.Println("\n[1] Listing families...")
	mustCall("GET", "/families", nil, nil)

	// 2. 세션 키 생성. 비밀값은 출력하지 않음
	fmt.Println("\n[2] Generating key...")
	var key generated
	mustCall("POST", "/wallets/generate", map[string]string{"family": *family}, &key)
	fmt.Printf("Generated %s address: %s (id %s)\n", key.Family, key.Address, key.ID)

	// 3. 생성 주소를 로컬 지갑이 승인한 계정으로 연결. relay는 QR 승인이 필요해서 제외
	fmt.Println("\n[3] Connecting generated address...")
	var providers []string
	mustCall("GET", "/providers/"+key.Family, nil, &providers)
	provider := ""
	for _, p := range providers {
		if p != "relay-protocol" {
			provider = p
			break
		}
	}
	if provider == "" {
		fmt.Printf("\n❌ FAILED: %s has no local provider\n", key.Family)
		os.Exit(1)
	}
	mustCall("POST", "/connections", map[string]interface{}{
		"family":   key.Family,
		"provider": provider,
		"label":    "api-test",
		"accounts": []string{key.Address},
	}, nil)

	// 4. 집계 실행
	fmt.Println("\n[4] Refreshing assets...")
	var snap assets
	start := time.Now()
	mustCall("POST", "/assets/refresh", nil, &snap)
	fmt.Printf("Pass took %s, %d records, total %.2f\n", time.Since(start), len(snap.Records), snap.TotalFiat)
	for _, r := range snap.Records {
		fmt.Printf("  %-12s %-6s %.8f  %.2f unpriced=%v\n", r.Network, r.Symbol, r.Amount, r.FiatValue, r.Unpriced)
	}

	// 5. 취득가 설정 후 손익 확인
	if len(snap.Records) > 0 {
		fmt.Println("\n[5] Setting cost basis...")
		r := snap.Records[0]
		mustCall("PUT", "/assets/basis", map[string]interface{}{
			"family":  key.Family,
			"owner":   key.Address,
			"assetId": r.Network + "/" + r.Symbol,
			"cost":    100,
		}, nil)
		mustCall("GET", "/assets", nil, &snap)
		if pl := snap.Records[0].ProfitOrLoss; pl != nil {
			fmt.Printf("P/L: %.2f\n", *pl)
		}
	}

	// 6. 금액/수량 환산
	fmt.Println("\n[6] Deriving value...")
	mustCall("POST", "/valuation/derive", map[string]interface{}{"known": 1000, "price": 40000, "direction": "fiat"}, nil)

	// 7. 정리
	fmt.Println("\n[7] Cleaning up...")
	mustCall("DELETE", "/connections/"+key.Family+"/"+key.Address, nil, nil)
	mustCall("DELETE", "/wallets/"+key.ID, nil, nil)

	fmt.Println("\n✅ SUCCESS: api test passed")
}

func mustCall(method, path string, body, out interface{}) {
	resp, err := call(method, path, body)
	if err != nil {
		fmt.Printf("\n❌ FAILED: %s %s: %v\n", method, path, err)
		os.Exit(1)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			fmt.Printf("\n❌ FAILED: parse %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func call(method, path string, body interface{}) (*APIResponse, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %s\n", resp.Status)

	var out APIResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %q: %w", raw, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%s: %s", out.Code, out.Error)
	}
	return &out, nil
}
