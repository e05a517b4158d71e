package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/famomatic/ytcore/client"
)

func main() {
	var (
		videoID  = flag.String("v", "", "Video ID or URL")
		proxy    = flag.String("proxy", "", "Proxy URL")
		locale   = flag.String("locale", "", "Request locale (default en)")
		quality  = flag.String("quality", "", "Pick one format: highest, lowest, an itag, or e.g. 720p")
		filter   = flag.String("filter", "", "Format filter: audioonly, videoonly, audioandvideo, or a container")
		personas = flag.String("personas", "", "Extra personas to try, comma separated")
		full     = flag.Bool("full", false, "Resolve format URLs (GetFullInfo)")
		verbose  = flag.Bool("verbose", false, "Debug logging")
	)
	flag.Parse()

	if *videoID == "" {
		fmt.Println("Usage: ytcore -v <video_id_or_url> [-full] [-quality highest] [-filter audioonly]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg := client.Config{
		ProxyURL: *proxy,
		Locale:   *locale,
		Logger:   &logger,
	}
	if *personas != "" {
		cfg.Personas = strings.Split(*personas, ",")
	}
	c := client.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fetch := c.GetBasicInfo
	if *full {
		fetch = c.GetFullInfo
	}
	info, err := fetch(ctx, *videoID)
	if err != nil {
		log.Fatalf("fetch video info: %v", err)
	}

	fmt.Printf("Title:    %s\n", info.Title)
	fmt.Printf("Author:   %s\n", info.Author)
	fmt.Printf("Duration: %ds  Views: %d\n", info.DurationSec, info.ViewCount)
	if info.MinimumMode {
		fmt.Println("(degraded result: metadata only, no formats)")
	}

	if *quality != "" || *filter != "" {
		f, err := c.ChooseFormat(info.Formats, client.ChooseOptions{Quality: *quality, FilterName: *filter})
		if err != nil {
			log.Fatalf("choose format: %v", err)
		}
		fmt.Printf("\n[%d] %s %s (%dx%d) %d kbps\n%s\n",
			f.Itag, f.QualityLabel, f.MimeType, f.Width, f.Height, f.Bitrate/1000, f.URL)
		return
	}

	fmt.Printf("\n%d formats:\n", len(info.Formats))
	for _, f := range info.Formats {
		fmt.Printf("[%d] %s (%dx%d) %d kbps - %s [%s]\n",
			f.Itag, f.QualityLabel, f.Width, f.Height, f.Bitrate/1000, f.MimeType, f.SourceClient)
	}
}
