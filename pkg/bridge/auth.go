package bridge

import b64 "encoding/base64"

func basicAuth(username, password string) string {
	return "Basic " + b64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
