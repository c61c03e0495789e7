package main

import "fmt"

// stdoutHost is the CLI's driver.HostContext: say prints directly, and the
// other actions print a recognizable placeholder line since a terminal has
// no inbox, no attachments, and no contact list to resolve nicknames
// against.
type stdoutHost struct{}

func (stdoutHost) Say(text string) error {
	fmt.Println(text)
	return nil
}

func (stdoutHost) Nudge(target int64) error {
	fmt.Printf("[nudge -> %d]\n", target)
	return nil
}

func (stdoutHost) PicSave(id string) error {
	fmt.Printf("[picsave %s]\n", id)
	return nil
}

func (stdoutHost) PicSend(id string) error {
	fmt.Printf("[picsend %s]\n", id)
	return nil
}

func (stdoutHost) Nickname(id int64) (string, error) {
	return fmt.Sprintf("user-%d", id), nil
}
