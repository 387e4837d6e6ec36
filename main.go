package main

import "github.com/dalmia/vidly/cmd"

// @title           Vidly API
// @version         1.0.0
// @description     API for chatting with YouTube videos
// @contact.name    API Support
// @contact.url     https://github.com/dalmia/vidly
// @host            localhost:8080
// @BasePath        /
// @schemes         http
func main() {
	cmd.Execute()
}
