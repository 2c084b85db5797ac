package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/hookchat/backend/internal/config"
	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	"github.com/zhouzirui/hookchat/backend/internal/service/chat"
	"github.com/zhouzirui/hookchat/backend/internal/service/recording"
	"github.com/zhouzirui/hookchat/backend/internal/service/relay"
	"github.com/zhouzirui/hookchat/backend/internal/service/responder"
	"github.com/zhouzirui/hookchat/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	audioPath := flag.String("audio", "", "作为麦克风输入的音频文件路径")
	text := flag.String("text", "", "直接发送的文本（未指定 -audio 时使用）")
	format := flag.String("format", "", "音频格式，默认根据文件扩展名推断")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	webhookURL := flag.String("webhook", "", "webhook 地址，默认使用 WEBHOOK_URL")
	speak := flag.Bool("speak", true, "是否为机器人回复合成语音")
	outputPath := flag.String("out", "", "合成语音输出路径 (默认根据格式自动生成)")
	timeout := flag.Duration("timeout", 45*time.Second, "整体超时时间")

	flag.Parse()

	if *audioPath == "" && strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("请通过 -audio 或 -text 指定输入")
	}

	url := *webhookURL
	if url == "" {
		url = cfg.Webhook.URL
	}

	speechSvc, err := speech.NewService(cfg.Speech.Model())
	if err != nil {
		log.Fatalf("语音服务初始化失败: %v", err)
	}

	widgets := widget.NewMemoryStore(widget.Seed(cfg.Widget.Title, cfg.Widget.Greeting, cfg.Speech.Language, cfg.Speech.TTSVoice, url))
	chatSvc := chat.NewService()
	relaySvc := relay.NewService(chatSvc, widgets, responder.NewWebhookResponder(url, cfg.Webhook.Timeout), speechSvc)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	session, err := chatSvc.CreateSession(ctx, widget.DefaultID)
	if err != nil {
		log.Fatalf("创建会话失败: %v", err)
	}

	opts := relay.SendOptions{Speak: *speak, Language: *language}

	var exchange *relay.Exchange
	if *audioPath != "" {
		exchange, err = runVoice(ctx, relaySvc, session.ID, *audioPath, *format, opts)
	} else {
		exchange, err = relaySvc.SendMessage(ctx, session.ID, *text, opts)
	}
	report(exchange)
	if err != nil {
		log.Fatalf("发送失败: %v", err)
	}
	if exchange == nil {
		return
	}

	if exchange.Speech != nil && len(exchange.Speech.AudioData) > 0 {
		writeAudio(*outputPath, exchange.Speech.Format, exchange.Speech.AudioData)
	} else if exchange.Speech != nil && exchange.Speech.ClientSide {
		log.Println("TTS 由浏览器完成，未生成音频文件")
	}
}

// runVoice 将音频文件当作麦克风录音，录制结束后转写并发送
func runVoice(ctx context.Context, relaySvc *relay.Service, sessionID, audioPath, format string, opts relay.SendOptions) (*relay.Exchange, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
	}

	rec := recording.NewSession(0)
	if err := rec.Start(ctx, recording.FileMicrophone{Path: audioPath}); err != nil {
		return nil, fmt.Errorf("开始录音失败: %w", err)
	}

	select {
	case <-rec.Done():
	case <-ctx.Done():
	}

	clip, err := rec.Stop()
	if errors.Is(err, recording.ErrNoAudio) {
		log.Println("未录到音频，跳过识别")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log.Printf("录音完成: session=%s format=%s bytes=%d", sessionID, format, len(clip))
	return relaySvc.SendVoice(ctx, sessionID, clip, format, opts)
}

func report(exchange *relay.Exchange) {
	if exchange == nil {
		return
	}
	if exchange.Transcript != nil {
		log.Printf("识别结果: text=%q confidence=%.2f provider=%s", exchange.Transcript.Text, exchange.Transcript.Confidence, exchange.Transcript.Provider)
	}
	if exchange.User != nil {
		log.Printf("用户: %s", exchange.User.Content)
	}
	if exchange.Bot != nil {
		log.Printf("机器人: %s (opaque=%t)", exchange.Bot.Content, exchange.Opaque)
	}
	for _, notice := range exchange.Notifications {
		log.Printf("[%s] %s", notice.Level, notice.Message)
	}
}

func writeAudio(outputPath, format string, audio []byte) {
	if format == "" {
		format = "mp3"
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}
	log.Printf("TTS 合成成功: 输出文件 %s, 大小=%d bytes", outputPath, len(audio))
}
