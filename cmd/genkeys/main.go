// Command genkeys generates access keys for grytd and optionally appends
// them to a .env file as GRYT_ACCESS_KEYS.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"gryt-terminal/internal/server"
)

func main() {
	var (
		count   = flag.Int("n", 1, "number of access keys to generate")
		envPath = flag.String("env", "", "path to a .env file to update (prints to stdout if omitted)")
	)
	flag.Parse()

	if *count < 1 {
		log.Fatal("-n must be at least 1")
	}

	keys := make([]string, 0, *count)
	for i := 0; i < *count; i++ {
		key, err := server.GenerateKey(32)
		if err != nil {
			log.Fatalf("failed to generate key: %v", err)
		}
		keys = append(keys, key)
	}

	if *envPath == "" {
		for _, key := range keys {
			fmt.Println(key)
		}
		return
	}

	if err := updateEnvFile(*envPath, keys); err != nil {
		log.Fatalf("failed to update %s: %v", *envPath, err)
	}
	fmt.Printf("wrote %d key(s) to %s\n", len(keys), *envPath)
}

// updateEnvFile replaces (or appends) the GRYT_ACCESS_KEYS line, keeping the
// rest of the file intact.
func updateEnvFile(path string, keys []string) error {
	content := ""
	if data, err := os.ReadFile(path); err == nil {
		content = string(data)
	} else if !os.IsNotExist(err) {
		return err
	}

	line := "GRYT_ACCESS_KEYS=" + strings.Join(keys, ",")
	keyRegex := regexp.MustCompile(`(?m)^GRYT_ACCESS_KEYS=.*$`)
	if keyRegex.MatchString(content) {
		content = keyRegex.ReplaceAllString(content, line)
	} else {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += line + "\n"
	}

	comment := fmt.Sprintf("# Keys generated on %s", time.Now().Format("2006-01-02 15:04:05"))
	commentRegex := regexp.MustCompile(`(?m)^# Keys generated on .*$`)
	if commentRegex.MatchString(content) {
		content = commentRegex.ReplaceAllString(content, comment)
	} else {
		content += comment + "\n"
	}

	return os.WriteFile(path, []byte(content), 0o644)
}
