// Package client implements the terminal side of the point-of-sale protocol.
//
// Order-entry stations and payment stations use the same Client:
//	1. Connect to the server and, if a role is configured, announce it with AUTH.
//	2. Order-entry stations fetch the MENU and send ORDER <table> <item> <qty>.
//	3. Payment stations poll GET_ORDERS and settle a table with PAY <table>.
//	4. Close sends QUIT and releases the connection.
//
// Each call sends one command and waits for its complete response, so a Client
// has at most one request in flight. ERROR replies are returned as *ServerError.
//
package client
