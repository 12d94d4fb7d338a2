package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	sessionreplay "github.com/sessionreplay/sessionreplay-go"
	"github.com/sessionreplay/sessionreplay-go/pkg/event"
)

func main() {
	sessionreplay.Init(os.Getenv("SESSIONREPLAY_APP_ID"), &sessionreplay.Options{
		RedactionTags: []string{"password", "authorization"},
	})
	defer sessionreplay.Shutdown()

	logrus.AddHook(sessionreplay.Default().ConsoleHook())
	http.DefaultClient = sessionreplay.WrapClient(http.DefaultClient)

	sessionreplay.GetSessionURL(func(url string) {
		logrus.WithField("url", url).Info("recording session")
	})
	sessionreplay.Identify("demo-user", sessionreplay.UserTraits{"plan": event.String("free")})

	resp, err := http.Get("https://example.com/")
	if err != nil {
		sessionreplay.CaptureException(err, nil)
		panic(err)
	}
	defer resp.Body.Close()

	sessionreplay.Track("page_loaded", &sessionreplay.TrackEventProperties{
		Properties: sessionreplay.Properties{"status": event.Number(resp.StatusCode)},
	})

	fmt.Println(resp.Status)
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		panic(err)
	}
}
