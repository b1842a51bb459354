package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/pkg/envelope"
	"paychecked_admin/pkg/logger"

	"go.uber.org/zap"
)

const (
	HeaderEncKeyID   = "X-iCP-EncKeyID"
	HeaderSignature  = "X-iCP-Signature"
	fieldEncData     = "EncData"
	rtnCodeSucceeded = "1"
)

// Crypto ICP 信封所需的加解密与签章
type Crypto interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	Sign(data []byte) (string, error)
	Verify(data []byte, signature string) (bool, error)
}

// Envelope 单次请求的加密信封，用完即弃
type Envelope struct {
	Ciphertext []byte
	EncData    string
	Signature  string
}

// Response 验签并解密后的 ICP 回应
type Response struct {
	Body   string
	Header http.Header
	// Fields 回应 JSON 本体
	Fields map[string]interface{}
	// Payload EncData 解密结果：JSON 值，或无法解析时的原始字串；无 EncData 时为 nil
	Payload    interface{}
	HasEncData bool
}

// Result 有 EncData 时为解密内容，否则为回应本体
func (r *Response) Result() interface{} {
	if r.HasEncData {
		return r.Payload
	}
	return r.Fields
}

// ICPClient 完成一次加密、签章、验签、解密的 ICP 往返
type ICPClient struct {
	crypto   Crypto
	http     *HTTPClient
	encKeyID string
}

func NewICPClient(crypto Crypto, httpClient *HTTPClient, encKeyID string) *ICPClient {
	return &ICPClient{crypto: crypto, http: httpClient, encKeyID: encKeyID}
}

// NewICPClientFromConfig 以 ICP 配置建立客户端，密钥于首次使用时载入
func NewICPClientFromConfig(cfg config.ICPConfig, opts ...Option) *ICPClient {
	codec := envelope.NewCodec(envelope.Options{
		PrivateKeyPath: cfg.ClientPrivateKeyPath,
		PublicKeyPath:  cfg.ServerPublicKeyPath,
		AESKey:         []byte(cfg.AESKey),
		AESIV:          []byte(cfg.AESIV),
		LenientPadding: cfg.LenientPadding,
	}, nil)
	return NewICPClient(codec, NewHTTPClient("ICP", cfg.TimeoutDuration(), opts...), cfg.EncKeyID)
}

// Seal JSON 编码、AES 加密、Base64、签章
func (c *ICPClient) Seal(data interface{}) (*Envelope, error) {
	plaintext, err := marshalCompact(data)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ciphertext, err := c.crypto.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("aes encrypt: %w", err)
	}
	encData := base64.StdEncoding.EncodeToString(ciphertext)

	signature, err := c.crypto.Sign([]byte(encData))
	if err != nil {
		return nil, fmt.Errorf("rsa sign: %w", err)
	}

	return &Envelope{Ciphertext: ciphertext, EncData: encData, Signature: signature}, nil
}

// Call 呼叫 ICP API，extra 为 EncData 以外的表单栏位
func (c *ICPClient) Call(ctx context.Context, apiURL string, data interface{}, extra map[string]string) (*Response, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("%w: api url is empty", ErrValidation)
	}
	if !strings.HasPrefix(apiURL, "http") {
		return nil, fmt.Errorf("%w: malformed api url %q", ErrValidation, apiURL)
	}

	env, err := c.Seal(data)
	if err != nil {
		return nil, err
	}

	form := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		form[k] = v
	}
	form[fieldEncData] = env.EncData

	logger.Log.Info("Posting to ICP", zap.String("api_url", apiURL), zap.String("enc_key_id", c.encKeyID))

	resp, err := c.http.PostForm(ctx, apiURL, form, map[string]string{
		"Content-Type":  "application/x-www-form-urlencoded",
		"Accept":        "application/json",
		HeaderEncKeyID:  c.encKeyID,
		HeaderSignature: env.Signature,
	})
	if err != nil {
		return nil, err
	}

	return c.open(resp)
}

// open 检查 RtnCode、验签、解密
func (c *ICPClient) open(resp *HTTPResponse) (*Response, error) {
	fields, err := decodeObject(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if code := fieldString(fields, "RtnCode"); code != rtnCodeSucceeded {
		return nil, &ProtocolError{RtnCode: code, RtnMsg: fieldString(fields, "RtnMsg")}
	}

	signature := resp.Header.Get(HeaderSignature)
	if signature == "" {
		return nil, ErrSignatureMissing
	}
	ok, err := c.crypto.Verify(resp.Body, signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSignatureInvalid
	}

	out := &Response{
		Body:   string(resp.Body),
		Header: resp.Header,
		Fields: fields,
	}

	raw, ok := fields[fieldEncData]
	if !ok {
		return out, nil
	}
	encData, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("decode response: EncData is %T, want string", raw)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encData)
	if err != nil {
		return nil, fmt.Errorf("decode EncData: %w", err)
	}
	plaintext, err := c.crypto.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("aes decrypt: %w", err)
	}

	out.HasEncData = true
	out.Payload = decodePayload(plaintext)
	return out, nil
}

// decodePayload 数字保留为 json.Number，非 JSON 时返回原始字串
func decodePayload(plaintext []byte) interface{} {
	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil || dec.More() {
		return string(plaintext)
	}
	return payload
}

func decodeObject(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("response body is not a JSON object")
	}
	return fields, nil
}

// fieldString 数字与字串一律转为文字比较
func fieldString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
