// @title                       taskhub API
// @version                     1.0
// @description                 Project and task tracking service.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

func main() {
	Execute()
}
